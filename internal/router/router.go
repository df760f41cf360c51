package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ecolehub/cartable-api/internal/config"
	"github.com/ecolehub/cartable-api/internal/handler"
	"github.com/ecolehub/cartable-api/internal/middleware"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	CourseHandler       *handler.CourseHandler
	ScheduleHandler     *handler.ScheduleHandler
	AssignmentHandler   *handler.AssignmentHandler
	ExamHandler         *handler.ExamHandler
	DashboardHandler    *handler.DashboardHandler
	NotificationHandler *handler.NotificationHandler
	ActivityHandler     *handler.ActivityHandler
	SeedHandler         *handler.SeedHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", 10, time.Minute))
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(auth.Group("", jwtMiddleware))
	}

	if deps.CourseHandler != nil {
		courses := api.Group("/courses", jwtMiddleware)
		deps.CourseHandler.Register(courses)

		if deps.ScheduleHandler != nil {
			teacherCourses := api.Group("/courses", jwtMiddleware)
			deps.ScheduleHandler.RegisterCourseRoutes(teacherCourses)
		}
	}

	if deps.ScheduleHandler != nil {
		// Calendar resolution is readable by any authenticated role; slot
		// mutations stay teacher/admin only.
		deps.ScheduleHandler.RegisterCalendar(api.Group("/schedule", jwtMiddleware))

		schedule := api.Group("/schedule", jwtMiddleware, middleware.RequireRole(models.RoleAdmin, models.RoleTeacher))
		deps.ScheduleHandler.Register(schedule)
	}

	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignments)

		if deps.ExamHandler != nil {
			deps.ExamHandler.Register(assignments)
			submissions := api.Group("/submissions", jwtMiddleware, middleware.RequireRole(models.RoleAdmin, models.RoleTeacher))
			deps.ExamHandler.RegisterSubmissions(submissions)
		}
	}

	if deps.DashboardHandler != nil {
		dashboard := api.Group("/dashboard", jwtMiddleware, middleware.RequireRole(models.RoleStudent))
		deps.DashboardHandler.Register(dashboard)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
	if deps.UserHandler != nil {
		deps.UserHandler.Register(admin.Group("/users"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
	if deps.SeedHandler != nil {
		// Seeding is guarded by its own token, not by a session.
		seed := api.Group("/admin/seed", middleware.RateLimit("seed", 3, time.Minute))
		deps.SeedHandler.Register(seed)
	}
}
