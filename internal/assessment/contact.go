package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/llm"
	"github.com/jonathan/interview-assistant/internal/schemas"
	"github.com/jonathan/interview-assistant/internal/types"
)

type contactResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ExtractContactInfo pulls name, email and phone out of resume text. Fields the
// service leaves blank are filled from the local pattern extractor, and the
// whole result comes from it when the service cannot answer.
func (g *Gateway) ExtractContactInfo(ctx context.Context, resumeText string) types.ContactInfo {
	local := fallback.ExtractContact(resumeText)
	if !g.Available() {
		g.skip(OpExtractContact)
		return local
	}

	prompt := llm.BuildExtractionPrompt(llm.ContactInfoSchema(), resumeText)

	var remote contactResponse
	err := g.attempt(ctx, OpExtractContact, func(ctx context.Context) error {
		resp, err := g.client.GenerateJSON(ctx, prompt, llm.TierLite)
		if err != nil {
			return fmt.Errorf("LLM generation failed: %w", err)
		}
		cleaned := llm.CleanJSONBlock(resp)
		if err := schemas.Validate(schemas.Contact, cleaned); err != nil {
			return fmt.Errorf("invalid contact response: %w", err)
		}
		if err := json.Unmarshal([]byte(cleaned), &remote); err != nil {
			return fmt.Errorf("failed to parse contact response: %w", err)
		}
		return nil
	})
	if err != nil {
		return local
	}

	info := types.ContactInfo{
		Name:       pick(remote.Name, local.Name),
		Email:      pick(remote.Email, local.Email),
		Phone:      pick(remote.Phone, local.Phone),
		ResumeText: resumeText,
	}
	if missing := fallback.MissingFields(info); len(missing) > 0 {
		g.log.Debug("contact extraction incomplete", zap.Strings("missing", missing))
	}
	return info
}

func pick(remote, local string) string {
	if fallback.IsMeaningful(remote) {
		return strings.TrimSpace(remote)
	}
	return local
}
