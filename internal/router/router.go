package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/student-hub-api/internal/handler"
	internalmiddleware "github.com/noah-isme/student-hub-api/internal/middleware"
	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/internal/service"
	"github.com/noah-isme/student-hub-api/pkg/config"
	"github.com/noah-isme/student-hub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-hub-api/pkg/middleware/requestid"
	timeoutmiddleware "github.com/noah-isme/student-hub-api/pkg/middleware/timeout"
)

type tokenResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth      *handler.AuthHandler
	Academic  *handler.AcademicHandler
	Activity  *handler.ActivityHandler
	Analytics *handler.AnalyticsHandler
	Metrics   *handler.MetricsHandler
}

// Options carries the cross-cutting dependencies of the middleware chain.
type Options struct {
	Env            string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *zap.Logger
	MetricsService *service.MetricsService
	Resolver       tokenResolver
	Audit          auditRecorder
}

// New builds the gin engine with every public and authenticated route.
func New(opts Options, h Handlers) *gin.Engine {
	logr := opts.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(timeoutmiddleware.Middleware(opts.RequestTimeout))
	r.Use(internalmiddleware.Metrics(opts.MetricsService))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/", h.Metrics.Root)
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authn := internalmiddleware.JWT(opts.Resolver)
	faculty := internalmiddleware.RequireRole(models.RoleFaculty)
	admin := internalmiddleware.RequireRole(models.RoleAdmin)

	auth := r.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/token", h.Auth.Token)
	auth.GET("/me", authn, h.Auth.Me)
	auth.PUT("/profile", authn, h.Auth.UpdateProfile)
	auth.POST("/change-password", authn, h.Auth.ChangePassword)

	academic := r.Group("/academic", authn)
	academic.GET("/academic-records/", h.Academic.ListMine)
	academic.POST("/academic-records/", h.Academic.Create)
	academic.GET("/students/", faculty, h.Academic.ListStudents)
	academic.POST("/student/:id/record", faculty,
		internalmiddleware.Audit(opts.Audit, logr, models.AuditActionStudentRecordAdd, "academic_record"),
		h.Academic.CreateForStudent)

	activities := r.Group("/activities", authn)
	activities.POST("/", h.Activity.Submit)
	activities.GET("/", h.Activity.ListMine)
	activities.GET("/pending", faculty, h.Activity.ListPending)
	activities.PUT("/:id/approve", faculty,
		internalmiddleware.Audit(opts.Audit, logr, models.AuditActionActivityApprove, "activity"),
		h.Activity.Approve)
	activities.PUT("/:id/reject", faculty,
		internalmiddleware.Audit(opts.Audit, logr, models.AuditActionActivityReject, "activity"),
		h.Activity.Reject)
	activities.POST("/upload-proof", h.Activity.UploadProof)
	activities.GET("/portfolio", h.Activity.Portfolio)

	analytics := r.Group("/analytics", authn, admin)
	analytics.GET("/", h.Analytics.Summary)
	analytics.GET("/system", h.Analytics.System)

	return r
}
