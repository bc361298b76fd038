package notification

import (
	"context"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/privacy"
)

// ShoutrrrProvider delivers through one shoutrrr router holding every
// configured service URL (telegram://, ntfy://, smtp://...).
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	accepts []Type
	timeout time.Duration
	router  *router.ServiceRouter
}

// NewShoutrrrProvider returns a provider for urls that accepts the listed
// types, or every type when none are listed. Call ValidateConfig before Send.
func NewShoutrrrProvider(name string, enabled bool, urls []string, types []Type, timeout time.Duration) *ShoutrrrProvider {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "shoutrrr"
	}
	if len(types) == 0 {
		types = []Type{TypeRecording, TypeError, TypeSystem}
	}
	return &ShoutrrrProvider{
		name:    name,
		enabled: enabled,
		urls:    slices.Clone(urls),
		accepts: slices.Clone(types),
		timeout: timeout,
	}
}

func (s *ShoutrrrProvider) GetName() string          { return s.name }
func (s *ShoutrrrProvider) IsEnabled() bool          { return s.enabled }
func (s *ShoutrrrProvider) SupportsType(t Type) bool { return slices.Contains(s.accepts, t) }

// ValidateConfig parses every URL by building the router. Errors never carry
// the URL credentials.
func (s *ShoutrrrProvider) ValidateConfig() error {
	if !s.enabled {
		return nil
	}
	if len(s.urls) == 0 {
		return s.fail(errors.NewStd("at least one URL is required"), errors.CategoryConfiguration)
	}

	r, err := shoutrrr.CreateSender(s.urls...)
	if err != nil {
		return s.fail(privacy.WrapError(err), errors.CategoryConfiguration)
	}
	if s.timeout > 0 {
		r.Timeout = s.timeout
	}
	r.SetLogger(log.New(io.Discard, "", 0))
	s.router = r
	return nil
}

// Send delivers n to every service and joins the failures.
func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if s.router == nil {
		return s.fail(errors.NewStd("shoutrrr sender not initialized"), errors.CategoryState)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}

	var failed []error
	for _, err := range s.router.Send(n.Message, &params) {
		if err != nil {
			failed = append(failed, privacy.WrapError(err))
		}
	}
	if len(failed) > 0 {
		return s.fail(errors.Join(failed...), errors.CategoryNetwork)
	}
	return nil
}

func (s *ShoutrrrProvider) fail(err error, category errors.ErrorCategory) error {
	return errors.New(err).
		Component(componentName).
		Category(category).
		Context("provider", s.name).
		Build()
}
