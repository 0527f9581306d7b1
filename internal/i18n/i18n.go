// Package i18n resolves localized strings from the embedded locale files.
//
// Locale files are go-i18n JSON message files named after their language
// tag ("en-US.json"). Message ids are dotted ("care.prompt") and
// placeholders are template fields ({{.userName}}).
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/originalcoast/igbot/internal/logger"
	"golang.org/x/text/language"
)

// DefaultLocale is used when the configured locale matches nothing.
var DefaultLocale = language.AmericanEnglish

//go:embed locales/*.json
var localeFS embed.FS

// Args holds placeholder values for T.
type Args map[string]string

// Translator looks up localized strings.
type Translator interface {
	T(key string, args ...Args) string
}

// Bundle holds every embedded locale.
type Bundle struct {
	messages *goi18n.Bundle
	matcher  language.Matcher
	tags     []language.Tag
}

// Load parses the embedded locale files. The default locale must be present.
func Load() (*Bundle, error) {
	return load(localeFS, "locales")
}

func load(fsys fs.FS, dir string) (*Bundle, error) {
	mb := goi18n.NewBundle(DefaultLocale)
	mb.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := fs.Glob(fsys, path.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}
	for _, file := range files {
		if _, err := mb.LoadMessageFileFS(fsys, file); err != nil {
			return nil, fmt.Errorf("load locale %s: %w", path.Base(file), err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no locales embedded under %s", dir)
	}
	if !hasLocale(files, DefaultLocale) {
		return nil, fmt.Errorf("default locale %s not embedded", DefaultLocale)
	}

	tags := mb.LanguageTags()
	return &Bundle{
		messages: mb,
		matcher:  language.NewMatcher(tags),
		tags:     tags,
	}, nil
}

func hasLocale(files []string, tag language.Tag) bool {
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), path.Ext(file))
		if t, err := parseLocale(name); err == nil && t == tag {
			return true
		}
	}
	return false
}

// Localizer returns a Translator for the best match of locale.
// An unparseable or unsupported locale yields the default locale.
func (b *Bundle) Localizer(locale string, log *logger.Logger) *Localizer {
	tag := DefaultLocale
	if t, err := parseLocale(locale); err == nil {
		if _, i, conf := b.matcher.Match(t); conf != language.No {
			tag = b.tags[i]
		}
	}
	return &Localizer{
		tag:      tag,
		primary:  goi18n.NewLocalizer(b.messages, tag.String()),
		fallback: goi18n.NewLocalizer(b.messages, DefaultLocale.String()),
		log:      log,
	}
}

// Localizer translates keys for one locale, falling back to the default locale.
type Localizer struct {
	tag      language.Tag
	primary  *goi18n.Localizer
	fallback *goi18n.Localizer
	log      *logger.Logger
	missing  sync.Map
}

// Tag returns the selected locale.
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// T returns the string for key with placeholders filled from args.
// An unknown key is returned unchanged.
func (l *Localizer) T(key string, args ...Args) string {
	cfg := &goi18n.LocalizeConfig{MessageID: key}
	if len(args) > 0 {
		data := make(map[string]string)
		for _, a := range args {
			for name, value := range a {
				data[name] = value
			}
		}
		cfg.TemplateData = data
	}

	msg, err := l.primary.Localize(cfg)
	var notFound *goi18n.MessageNotFoundErr
	if errors.As(err, &notFound) && l.tag != DefaultLocale {
		msg, err = l.fallback.Localize(cfg)
	}
	if err == nil {
		return msg
	}

	if _, seen := l.missing.LoadOrStore(key, struct{}{}); !seen && l.log != nil {
		l.log.WithError(err).
			WithField("key", key).
			WithField("locale", l.tag.String()).
			Debug("Missing translation")
	}
	return key
}

func parseLocale(s string) (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(s, "_", "-"))
}
