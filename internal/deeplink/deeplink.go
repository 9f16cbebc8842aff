// Package deeplink classifies inbound URLs into routing intents and
// dispatches them. Every link is offered to attribution before routing.
package deeplink

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/navigation"
	"github.com/jonathan/govjob-alerts/internal/result"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// Kind is the class of a parsed link.
type Kind int

// Kinds
const (
	KindDefault Kind = iota
	KindJob
	KindCategory
)

func (k Kind) String() string {
	switch k {
	case KindJob:
		return "job"
	case KindCategory:
		return "category"
	default:
		return "default"
	}
}

// Intent is what a link asks the app to do.
type Intent struct {
	Kind Kind
	// JobID is set for KindJob.
	JobID string
	// Category is the category query parameter of a job link, or the
	// path name of a category link.
	Category string
	UTM      types.UTM
}

// Parse classifies rawURL. It never fails; anything it does not recognize
// is KindDefault. For non-web schemes the host is treated as the first path
// segment, so govjobs://job/42 and https://host/job/42 parse the same way.
func Parse(rawURL string) Intent {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Intent{Kind: KindDefault}
	}

	query := u.Query()
	intent := Intent{Kind: KindDefault, UTM: types.UTMFromValues(query)}

	segments := pathSegments(u)
	for i, seg := range segments {
		next := ""
		if i+1 < len(segments) {
			next = segments[i+1]
		}
		switch seg {
		case "job":
			if next == "" {
				return intent
			}
			intent.Kind = KindJob
			intent.JobID = next
			intent.Category = query.Get("category")
			return intent
		case "category":
			if next == "" {
				return intent
			}
			intent.Kind = KindCategory
			intent.Category = next
			return intent
		}
	}
	return intent
}

func pathSegments(u *url.URL) []string {
	var segments []string
	scheme := strings.ToLower(u.Scheme)
	if scheme != "" && scheme != "http" && scheme != "https" && u.Host != "" {
		segments = append(segments, u.Host)
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// Attributor records UTM attribution for opened links.
type Attributor interface {
	TrackDeepLinkOpen(ctx context.Context, rawURL string) (types.UTM, bool)
}

// Navigator opens the destinations a link can name.
type Navigator interface {
	WaitReady(ctx context.Context) error
	OpenJob(ctx context.Context, jobID, categoryID string) navigation.Route
	OpenCategory(ctx context.Context, name string) navigation.Route
	Default(ctx context.Context) navigation.Route
}

// Router dispatches links.
type Router struct {
	attribution Attributor
	nav         Navigator
	logger      *zap.Logger
}

// NewRouter creates a Router.
func NewRouter(attribution Attributor, nav Navigator, logger *zap.Logger) *Router {
	return &Router{attribution: attribution, nav: nav, logger: logging.OrNop(logger).Named("deeplink")}
}

// Handle records attribution for rawURL and routes it. Routing failures fall
// back to the default screen. When the navigator never becomes ready the
// link is dropped and the zero Route is returned.
func (r *Router) Handle(ctx context.Context, rawURL string) navigation.Route {
	if r.attribution != nil {
		result.Guard(r.logger, "deep link attribution", func() (types.UTM, error) {
			utm, _ := r.attribution.TrackDeepLinkOpen(ctx, rawURL)
			return utm, nil
		})
	}

	intent := Parse(rawURL)
	r.logger.Info("deep link received", zap.String("url", rawURL), zap.Stringer("intent", intent.Kind))

	if r.nav == nil {
		return navigation.Route{}
	}
	if err := r.nav.WaitReady(ctx); err != nil {
		r.logger.Error("dropping deep link", zap.String("url", rawURL), zap.Error(err))
		return navigation.Route{}
	}

	res := result.Guard(r.logger, "route deep link", func() (navigation.Route, error) {
		return r.dispatch(ctx, intent), nil
	})
	if !res.OK() {
		return r.nav.Default(ctx)
	}
	return res.Value
}

func (r *Router) dispatch(ctx context.Context, intent Intent) navigation.Route {
	switch intent.Kind {
	case KindJob:
		return r.nav.OpenJob(ctx, intent.JobID, intent.Category)
	case KindCategory:
		return r.nav.OpenCategory(ctx, intent.Category)
	default:
		return r.nav.Default(ctx)
	}
}

// HandleInitialLink handles the link that launched the app, if any.
func (r *Router) HandleInitialLink(ctx context.Context, rawURL string) (navigation.Route, bool) {
	if strings.TrimSpace(rawURL) == "" {
		r.logger.Debug("no initial link")
		return navigation.Route{}, false
	}
	return r.Handle(ctx, rawURL), true
}
