package httpapi

import (
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"shopfront/internal/service"
)

const headerRequestID = "X-Request-Id"

type Server struct {
	engine   *gin.Engine
	log      *zap.Logger
	products *service.ProductService
	orders   *service.OrderService
	uploads  *service.UploadService
}

var registerTagNames sync.Once

// fieldNames makes validation errors report json/form names instead of Go field names.
func fieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
}

func NewServer(serviceName string, log *zap.Logger, products *service.ProductService, orders *service.OrderService, uploads *service.UploadService) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	fieldNames()
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(log), otelgin.Middleware(serviceName))
	s := &Server{engine: r, log: log, products: products, orders: orders, uploads: uploads}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// a nil service leaves its routes unregistered
	if s.products != nil {
		products := s.engine.Group("/product")
		{
			products.GET("", s.listProducts)
			products.GET("/search", s.searchProducts)
			products.GET("/get/:id", s.getProduct)
			products.POST("", s.createProduct)
			products.PUT("/:id", s.updateProduct)
			products.DELETE("/:id", s.deleteProduct)
		}
	}

	if s.orders != nil {
		orders := s.engine.Group("/orders")
		{
			orders.GET("", s.listOrders)
			orders.GET("/:id", s.getOrder)
			orders.POST("", s.createOrder)
			orders.DELETE("/:id", s.deleteOrder)
		}
	}

	if s.uploads != nil {
		uploads := s.engine.Group("/upload")
		{
			uploads.POST("/file", s.uploadFile)
			uploads.GET("/uploads/:filename", s.getUpload)
		}
		s.engine.Static("/"+service.UploadPrefix, s.uploads.Dir())
	}
}

// requestID propagates or assigns X-Request-Id and stores it in the request context.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(service.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", service.RequestIDFrom(c.Request.Context())),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
