package routes

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/JehanneDarc/majsoul-plus-client/internal/cache"
)

const cachePrefix = "/-/cache"

// RegisterCacheRoutes 暴露 DELETE /-/cache/*，按原始请求路径删除单个缓存文件，
// 下一次请求会重新回源。
func RegisterCacheRoutes(app *fiber.App, store cache.Store) {
	if app == nil || store == nil {
		return
	}

	app.Delete(cachePrefix+"/*", func(c fiber.Ctx) error {
		// 保留百分号编码，与落盘时的文件名一致。
		path := strings.TrimPrefix(string(c.Request().URI().PathOriginal()), cachePrefix)
		if path == "" || path == "/" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_path"})
		}

		err := store.Remove(c.Context(), cache.Locator{Path: path})
		switch {
		case err == nil:
			return c.SendStatus(fiber.StatusNoContent)
		case errors.Is(err, cache.ErrInvalidPath):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_path"})
		case errors.Is(err, cache.ErrReadOnly):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "read_only"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "remove_failed"})
		}
	})
}
