package routes

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/JehanneDarc/majsoul-plus-client/internal/mods"
	"github.com/JehanneDarc/majsoul-plus-client/internal/version"
)

// RegisterModRoutes 暴露 /-/mods 诊断接口，查看已加载的 Mod 及其重写规则，
// 并提供显式重新加载入口。
func RegisterModRoutes(app *fiber.App, loader *mods.Loader) {
	if app == nil || loader == nil {
		return
	}

	app.Get("/-/mods", func(c fiber.Ctx) error {
		return c.JSON(encodeRegistry(loader.Registry()))
	})

	app.Post("/-/mods/reload", func(c fiber.Ctx) error {
		return c.JSON(encodeRegistry(loader.Reload()))
	})
}

// RegisterVersionRoutes 暴露 /-/version，可选 latest 参数用于判断更新幅度。
func RegisterVersionRoutes(app *fiber.App) {
	if app == nil {
		return
	}

	app.Get("/-/version", func(c fiber.Ctx) error {
		payload := versionPayload{
			Version: version.Version,
			Commit:  version.Commit,
		}
		latest := strings.TrimSpace(c.Query("latest"))
		if latest == "" {
			return c.JSON(payload)
		}
		if !version.Valid(latest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_version"})
		}
		rank := version.Compare(latest, version.Version)
		payload.Latest = latest
		payload.Rank = int(rank)
		payload.RankName = rank.String()
		payload.Update = rank.IsUpdate()
		return c.JSON(payload)
	})
}

type registryPayload struct {
	Source string       `json:"source"`
	Mods   []modPayload `json:"mods"`
}

type modPayload struct {
	Name  string        `json:"name"`
	Root  string        `json:"root"`
	Rules []rulePayload `json:"rules,omitempty"`
}

type rulePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type versionPayload struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Latest   string `json:"latest,omitempty"`
	Rank     int    `json:"rank"`
	RankName string `json:"rank_name,omitempty"`
	Update   bool   `json:"update"`
}

func encodeRegistry(registry *mods.Registry) registryPayload {
	payload := registryPayload{
		Source: registry.Source(),
		Mods:   []modPayload{},
	}
	for _, mod := range registry.Mods() {
		item := modPayload{
			Name: mod.DisplayName(),
			Root: mod.Root(),
		}
		for _, rule := range mod.Replace {
			item.Rules = append(item.Rules, rulePayload{From: rule.From, To: rule.To})
		}
		payload.Mods = append(payload.Mods, item)
	}
	return payload
}
