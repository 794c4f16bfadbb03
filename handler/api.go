package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type PingResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"API is alive"`
	Time    string `json:"time" example:"2021-06-19T08:09:10.115924-05:00"`
}

// Ping reports that the server is up
func Ping(c *fiber.Ctx) error {
	return c.JSON(PingResponse{
		Status:  "success",
		Message: "API is alive",
		Time:    time.Now().Format(time.RFC3339Nano),
	})
}
