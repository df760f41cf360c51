package handler_test

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/config"
	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/handler"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
	"github.com/ecolehub/cartable-api/internal/router"
	"github.com/ecolehub/cartable-api/internal/service"
)

func newNotificationApp(t *testing.T, db *gorm.DB, actorID uint) (*fiber.App, service.NotificationService) {
	t.Helper()

	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	notificationService := service.NewNotificationService(
		repository.NewNotificationRepository(db), client, "cartable-test", nil, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, time.Second),
		JWTMiddleware:       authStub(actorID, models.RoleStudent),
	})

	return app, notificationService
}

func TestNotificationHandlerListAndMarkRead(t *testing.T) {
	db := openHandlerDB(t)
	student := seedHandlerUser(t, db, models.RoleStudent)
	other := seedHandlerUser(t, db, models.RoleStudent)
	app, notificationService := newNotificationApp(t, db, student.ID)

	published, err := notificationService.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  student.ID,
		Type:    models.NotificationExamOpened,
		Message: "Midterm is now open",
	})
	require.NoError(t, err)

	_, err = notificationService.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  other.ID,
		Type:    models.NotificationDeadlineReminder,
		Message: "Essay due tomorrow",
	})
	require.NoError(t, err)

	listResp, err := app.Test(httptest.NewRequest("GET", "/api/v1/notifications/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var listBody struct {
		Data []dto.NotificationResponse `json:"data"`
	}
	decodeResponse(t, listResp, &listBody)
	require.Len(t, listBody.Data, 1)
	require.Equal(t, "Midterm is now open", listBody.Data[0].Message)
	require.False(t, listBody.Data[0].Read)

	readResp, err := app.Test(httptest.NewRequest("PATCH", fmt.Sprintf("/api/v1/notifications/%d/read", published.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, readResp.StatusCode)

	var readBody struct {
		Data dto.NotificationResponse `json:"data"`
	}
	decodeResponse(t, readResp, &readBody)
	require.True(t, readBody.Data.Read)
}

func TestNotificationHandlerSanitizesMarkup(t *testing.T) {
	db := openHandlerDB(t)
	student := seedHandlerUser(t, db, models.RoleStudent)
	_, notificationService := newNotificationApp(t, db, student.ID)

	published, err := notificationService.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  student.ID,
		Type:    models.NotificationDeadlineReminder,
		Message: `<script>alert("x")</script>Quiz closes at noon`,
	})
	require.NoError(t, err)
	require.Equal(t, "Quiz closes at noon", published.Message)
}
