// Package attribution records how the app was installed and how it was
// opened. Install attribution is written once per install behind a
// persisted sentinel; deep-link attribution is reported on every open.
package attribution

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/govjob-alerts/internal/kv"
	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/reporting"
	"github.com/jonathan/govjob-alerts/internal/result"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// Storage keys
const (
	KeyTracked     = "utm_attribution_tracked"
	KeyData        = "utm_attribution_data"
	KeyDailyLaunch = "daily_launch_tracked"
)

// Fallback values for fields the referrer or link did not carry.
const (
	StoreSource           = "play-store"
	OrganicMedium         = "organic"
	InstallReferrerMedium = "install_referrer"
	DeepLinkMedium        = "deep_link"
	UnknownValue          = "unknown"
)

// Analytics events and user properties
const (
	EventInstallAttributed = "app_install_attributed"
	EventFirstOpen         = "first_open_attributed"
	EventDeepLink          = "deep_link_attribution"
	EventCampaignClick     = "campaign_click"

	PropertySource   = "attribution_source"
	PropertyMedium   = "attribution_medium"
	PropertyCampaign = "attribution_campaign"
)

// Marketing events
const (
	MarketingInstall       = "InstallAttribution"
	MarketingDeepLink      = "DeepLinkAttribution"
	MarketingCampaignClick = "CampaignClick"
	MarketingAppLaunch     = "app_launch"
)

const (
	dailyLaunchLayout      = "2006-01-02"
	trackedValue           = "true"
	attributionMethodParam = "attribution_method"
	linkURLParam           = "link_url"
)

// ErrReferrerUnavailable is returned by a ReferrerSource that cannot answer.
var ErrReferrerUnavailable = errors.New("install referrer unavailable")

// ReferrerSource retrieves the platform install referrer, a URL-encoded
// query string such as "utm_source=google&utm_medium=cpc".
type ReferrerSource interface {
	InstallReferrer(ctx context.Context) (string, error)
}

// ReferrerFunc adapts a function to ReferrerSource.
type ReferrerFunc func(ctx context.Context) (string, error)

// InstallReferrer implements ReferrerSource.
func (f ReferrerFunc) InstallReferrer(ctx context.Context) (string, error) { return f(ctx) }

// Tracker records install and deep-link attribution.
type Tracker struct {
	store    kv.Store
	reporter reporting.Reporter
	referrer ReferrerSource
	logger   *zap.Logger
	now      func() time.Time

	mu sync.Mutex
}

// New creates a Tracker. A nil referrer means the platform has no install
// referrer, so installs are attributed as organic.
func New(store kv.Store, reporter reporting.Reporter, referrer ReferrerSource, logger *zap.Logger) *Tracker {
	if reporter == nil {
		reporter = reporting.Discard{}
	}
	return &Tracker{
		store:    store,
		reporter: reporter,
		referrer: referrer,
		logger:   logging.OrNop(logger).Named("attribution"),
		now:      time.Now,
	}
}

// TrackInstall attributes the install the first time it runs and is a no-op
// afterwards. It returns the new record, or nil when the install was already
// tracked or the sentinel could not be read.
func (t *Tracker) TrackInstall(ctx context.Context) *types.Attribution {
	t.mu.Lock()
	defer t.mu.Unlock()

	tracked, found, err := t.store.Get(ctx, KeyTracked)
	if err != nil {
		t.logger.Warn("failed to read attribution sentinel", zap.Error(err))
		return nil
	}
	if found && string(tracked) == trackedValue {
		t.logger.Debug("install attribution already tracked")
		return nil
	}

	rec := t.resolveInstall(ctx)

	result.Do(t.logger, "store attribution", func() error {
		return kv.SetJSON(ctx, t.store, KeyData, rec)
	})
	t.reportInstall(rec)
	result.Do(t.logger, "mark attribution tracked", func() error {
		return t.store.Set(ctx, KeyTracked, []byte(trackedValue))
	})

	t.logger.Info("install attribution tracked",
		zap.String("source", rec.Source), zap.String("method", rec.Method))
	return &rec
}

func (t *Tracker) resolveInstall(ctx context.Context) types.Attribution {
	if t.referrer == nil {
		return t.organic()
	}

	res := result.Guard(t.logger, "install referrer", func() (string, error) {
		return t.referrer.InstallReferrer(ctx)
	})
	if !res.OK() || strings.TrimSpace(res.Value) == "" {
		return t.organic()
	}

	utm := ParseReferrer(res.Value)
	if utm.Empty() {
		t.logger.Info("install referrer carries no UTM parameters")
		return t.organic()
	}

	return types.Attribution{
		UTM:       utm.WithDefaults(StoreSource, InstallReferrerMedium, UnknownValue),
		Method:    types.MethodInstallReferrer,
		Timestamp: t.now(),
	}
}

func (t *Tracker) organic() types.Attribution {
	return types.Attribution{
		UTM:       types.UTM{Source: StoreSource, Medium: OrganicMedium, Campaign: UnknownValue},
		Method:    types.MethodOrganicFallback,
		Timestamp: t.now(),
	}
}

// ParseReferrer extracts UTM fields from an install referrer string. The
// string is percent-decoded once before it is parsed as a query.
func ParseReferrer(referrer string) types.UTM {
	decoded, err := url.PathUnescape(strings.TrimSpace(referrer))
	if err != nil {
		decoded = referrer
	}
	decoded = strings.TrimPrefix(decoded, "?")
	values, _ := url.ParseQuery(decoded)
	return types.UTMFromValues(values)
}

func (t *Tracker) reportInstall(rec types.Attribution) {
	params := rec.Params()
	params[attributionMethodParam] = rec.Method
	t.reporter.Enqueue(reporting.TargetAnalytics, reporting.NewEvent(EventInstallAttributed, params))

	t.reporter.Enqueue(reporting.TargetAnalytics, reporting.UserProperty(PropertySource, rec.Source))
	t.reporter.Enqueue(reporting.TargetAnalytics, reporting.UserProperty(PropertyMedium, rec.Medium))
	t.reporter.Enqueue(reporting.TargetAnalytics, reporting.UserProperty(PropertyCampaign, rec.Campaign))

	t.reporter.Enqueue(reporting.TargetAnalytics, reporting.NewEvent(EventFirstOpen, map[string]string{
		"attribution_source": rec.Source,
		"campaign_name":      rec.Campaign,
		"medium":             rec.Medium,
	}))

	t.reporter.Enqueue(reporting.TargetMarketing, reporting.NewEvent(MarketingInstall, map[string]string{
		types.ParamSource:      rec.Source,
		types.ParamMedium:      rec.Medium,
		types.ParamCampaign:    rec.Campaign,
		attributionMethodParam: rec.Method,
	}))
}

// TrackDeepLinkOpen reports the UTM parameters of an opened link. It returns
// the parameters as found in the link and false when the link carries none
// or cannot be parsed. The install sentinel is never touched.
func (t *Tracker) TrackDeepLinkOpen(_ context.Context, rawURL string) (types.UTM, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		t.logger.Debug("deep link is not a valid URL", zap.String("url", rawURL), zap.Error(err))
		return types.UTM{}, false
	}

	utm := types.UTMFromValues(u.Query())
	if utm.Empty() {
		return types.UTM{}, false
	}

	rec := types.Attribution{
		UTM:       utm.WithDefaults(UnknownValue, DeepLinkMedium, UnknownValue),
		Method:    types.MethodDeepLink,
		Timestamp: t.now(),
		LinkURL:   rawURL,
	}

	params := rec.Params()
	params[linkURLParam] = rec.LinkURL
	t.reporter.Enqueue(reporting.TargetAnalytics, reporting.NewEvent(EventDeepLink, params))
	t.reporter.Enqueue(reporting.TargetMarketing, reporting.NewEvent(MarketingDeepLink, map[string]string{
		types.ParamSource:   rec.Source,
		types.ParamMedium:   rec.Medium,
		types.ParamCampaign: rec.Campaign,
		"link_source":       DeepLinkMedium,
	}))

	t.logger.Info("deep link attribution tracked",
		zap.String("source", rec.Source), zap.String("campaign", rec.Campaign))
	return utm, true
}

// StoredAttribution returns the install attribution record, or nil.
func (t *Tracker) StoredAttribution(ctx context.Context) *types.Attribution {
	var rec types.Attribution
	found, err := kv.GetJSON(ctx, t.store, KeyData, &rec)
	if err != nil {
		t.logger.Warn("failed to read attribution data", zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}
	return &rec
}

// Reset clears the install sentinel and the stored record.
func (t *Tracker) Reset(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	result.Do(t.logger, "reset attribution data", func() error { return t.store.Delete(ctx, KeyData) })
	result.Do(t.logger, "reset attribution sentinel", func() error { return t.store.Delete(ctx, KeyTracked) })
	t.logger.Info("attribution reset")
}

// TrackDailyLaunch reports an app launch to the marketing sink at most once
// per calendar day. It reports whether an event was sent.
func (t *Tracker) TrackDailyLaunch(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.now().Format(dailyLaunchLayout)
	last, _, err := t.store.Get(ctx, KeyDailyLaunch)
	if err != nil {
		t.logger.Warn("failed to read daily launch sentinel", zap.Error(err))
		return false
	}
	if string(last) == today {
		return false
	}

	t.reporter.Enqueue(reporting.TargetMarketing, reporting.NewEvent(MarketingAppLaunch, map[string]string{"date": today}))
	result.Do(t.logger, "mark daily launch", func() error {
		return t.store.Set(ctx, KeyDailyLaunch, []byte(today))
	})
	return true
}

// TrackCampaignClick reports a retargeting campaign click to both sinks.
func (t *Tracker) TrackCampaignClick(_ context.Context, source, medium, campaign string) {
	params := map[string]string{
		types.ParamSource:   source,
		types.ParamMedium:   medium,
		types.ParamCampaign: campaign,
	}
	analytics := make(map[string]string, len(params)+1)
	for k, v := range params {
		analytics[k] = v
	}
	analytics["timestamp"] = t.now().UTC().Format(time.RFC3339)

	t.reporter.Enqueue(reporting.TargetAnalytics, reporting.NewEvent(EventCampaignClick, analytics))
	t.reporter.Enqueue(reporting.TargetMarketing, reporting.NewEvent(MarketingCampaignClick, params))
}
