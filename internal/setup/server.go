// Package setup serves the one-time OAuth callback used to obtain the first refresh token.
package setup

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"time"

	"github.com/flowbaker/misoca-monthly/internal/version"
	"github.com/flowbaker/misoca-monthly/pkg/clients/misoca"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/rs/zerolog/log"
)

const (
	successTitle = "アクセストークン取得成功！"
	errorTitle   = "エラー発生"
)

var page = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<pre>{{.Payload}}</pre>
</body>
</html>
`))

type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*misoca.TokenResponse, error)
}

type ServerDependencies struct {
	Client      TokenExchanger
	RedirectURI string
}

func NewServer(deps ServerDependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: version.Name + "-setup",
	})

	app.Use(logger.New())

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":     "healthy",
			"service":    version.Name,
			"version":    version.GetVersion(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"setup_mode": true,
		})
	})

	callback := NewCallbackController(CallbackControllerDependencies{
		Client:      deps.Client,
		RedirectURI: deps.RedirectURI,
	})

	app.Get("/callback", callback.HandleCallback)

	return app
}

type CallbackControllerDependencies struct {
	Client      TokenExchanger
	RedirectURI string
}

type CallbackController struct {
	client      TokenExchanger
	redirectURI string
}

func NewCallbackController(deps CallbackControllerDependencies) *CallbackController {
	return &CallbackController{
		client:      deps.Client,
		redirectURI: deps.RedirectURI,
	}
}

// HandleCallback exchanges the authorization code and shows the token response
func (c *CallbackController) HandleCallback(ctx fiber.Ctx) error {
	code := ctx.Query("code")
	if code == "" {
		log.Warn().Str("error", ctx.Query("error")).Msg("Callback received without authorization code")
		return render(ctx, fiber.StatusBadRequest, errorTitle, indent(marshal(fiber.Map{
			"error":             "missing_code",
			"error_description": "the callback was called without a code query parameter",
		})))
	}

	token, err := c.client.ExchangeCode(ctx.RequestCtx(), code, c.redirectURI)
	if err != nil {
		payload := errorPayload(err)
		log.Error().Err(err).RawJSON("data", payload).Msg("Token error")
		return render(ctx, fiber.StatusBadGateway, errorTitle, indent(payload))
	}

	log.Info().Msg("Authorization code exchanged, copy refresh_token from the callback page into REFRESH_TOKEN")

	payload := []byte(token.Raw)
	if !json.Valid(payload) {
		payload = marshal(token)
	}

	return render(ctx, fiber.StatusOK, successTitle, indent(payload))
}

// errorPayload is the upstream response body, verbatim when it is JSON and as a JSON string
// otherwise. Without a response body the error message is shown.
func errorPayload(err error) []byte {
	if apiErr, ok := misoca.AsError(err); ok && apiErr.Body != "" {
		if json.Valid([]byte(apiErr.Body)) {
			return []byte(apiErr.Body)
		}
		return marshal(apiErr.Body)
	}
	return marshal(err.Error())
}

func render(ctx fiber.Ctx, status int, title, payload string) error {
	var buf bytes.Buffer
	if err := page.Execute(&buf, struct {
		Title   string
		Payload string
	}{Title: title, Payload: payload}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Status(status).Send(buf.Bytes())
}

func indent(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// marshal leaves HTML characters unescaped; the page template escapes them
func marshal(v any) []byte {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return []byte(`null`)
	}
	return bytes.TrimSpace(buf.Bytes())
}

// Serve listens on address until ctx is cancelled
func Serve(ctx context.Context, app *fiber.App, address, authorizeURL string) error {
	log.Info().Str("address", address).Msg("Setup server listening")
	log.Info().Str("url", authorizeURL).Msg("Open this URL in a browser to authorize the application")

	return app.Listen(address, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	})
}
