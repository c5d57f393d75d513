package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"backend-tweeter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

const webhookTolerance = 5 * time.Minute

var nowFn = time.Now

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		Username       string `json:"username"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
		ImageURL  string `json:"image_url"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"data"`
}

func (e webhookEvent) external() ExternalIdentity {
	ext := ExternalIdentity{
		ID:        e.Data.ID,
		Username:  e.Data.Username,
		FirstName: e.Data.FirstName,
		LastName:  e.Data.LastName,
		AvatarURL: e.Data.ImageURL,
	}
	if len(e.Data.EmailAddresses) > 0 {
		ext.Email = e.Data.EmailAddresses[0].EmailAddress
	}
	return ext
}

func RegisterRoutes(r fiber.Router, svc *Service, webhookSecret string, requireViewer fiber.Handler) {
	r.Post("/webhook", func(c *fiber.Ctx) error {
		body := c.Body()

		if webhookSecret != "" {
			err := verifySignature(webhookSecret, c.Get("webhook-id"), c.Get("webhook-timestamp"), c.Get("webhook-signature"), body)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}

		var event webhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}

		switch event.Type {
		case "user.created", "user.updated":
			if _, err := svc.Apply(c.Context(), event.external()); err != nil {
				return apperr.ToFiber(err)
			}
		}
		return c.JSON(fiber.Map{"status": "processed"})
	})

	r.Get("/me", requireViewer, func(c *fiber.Ctx) error {
		viewer, ok := ViewerFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "no viewer")
		}
		return c.JSON(fiber.Map{
			"user":            viewer,
			"followers_count": len(viewer.Followers),
			"following_count": len(viewer.Following),
		})
	})
}

// verifySignature checks the webhook HMAC: base64(HMAC-SHA256(secret,
// "{id}.{timestamp}.{body}")). The signature header may carry several
// space-separated "v1,<sig>" candidates.
func verifySignature(secret, id, timestamp, signature string, body []byte) error {
	if id == "" || timestamp == "" || signature == "" {
		return errors.New("missing webhook signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.New("invalid webhook timestamp")
	}
	if delta := nowFn().Sub(time.Unix(ts, 0)); delta > webhookTolerance || delta < -webhookTolerance {
		return errors.New("webhook timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(signature) {
		candidate = strings.TrimPrefix(candidate, "v1,")
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}
	return errors.New("webhook signature mismatch")
}
