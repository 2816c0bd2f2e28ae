package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ariel-naviandana/chat-cs/internal/cache"
	"github.com/ariel-naviandana/chat-cs/internal/handlers"
	"github.com/ariel-naviandana/chat-cs/internal/repository"
	"github.com/ariel-naviandana/chat-cs/internal/service"
	"github.com/ariel-naviandana/chat-cs/internal/wa"
	"github.com/ariel-naviandana/chat-cs/internal/ws"
)

func NewServer(engine *service.Engine, repo repository.MessageRepository, presence *cache.PresenceStore, hub *ws.Hub, wac *wa.Client, log *zap.Logger) *fiber.App {
	app := fiber.New()
	app.Use(logger.New())

	agent := handlers.NewAgentHandler(engine, repo, presence, hub, log)

	app.Get("/ws", websocket.New(agent.WSHandler()))

	api := app.Group("/api/v1")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"session":    string(wac.SessionState()),
			"ws_clients": hub.Count(),
		})
	})
	api.Get("/chats", func(c *fiber.Ctx) error {
		chats, err := repo.GetChats(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(chats)
	})
	api.Get("/chats/:chat_id/messages", func(c *fiber.Ctx) error {
		limit := int64(c.QueryInt("limit", 50))
		offset := int64(c.QueryInt("offset", 0))
		msgs, err := repo.GetMessagesByChat(c.Context(), c.Params("chat_id"), limit, offset)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(msgs)
	})
	api.Post("/messages", func(c *fiber.Ctx) error {
		var req struct {
			ChatID           string `json:"chatId"`
			Text             string `json:"text"`
			QuotedID         string `json:"quotedId"`
			CorrelationToken string `json:"correlationToken"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		msg, err := engine.Send(c.Context(), service.SendRequest{
			ChatID:           req.ChatID,
			Text:             req.Text,
			QuotedID:         req.QuotedID,
			CorrelationToken: req.CorrelationToken,
		})
		if err != nil {
			return c.Status(502).JSON(fiber.Map{"error": err.Error(), "message": msg})
		}
		return c.JSON(msg)
	})

	return app
}
