package utils

import "github.com/gofiber/fiber/v3"

// SuccessFields sends fields alongside "success": true with the given status
func SuccessFields(c fiber.Ctx, status int, fields fiber.Map) error {
	body := fiber.Map{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}
