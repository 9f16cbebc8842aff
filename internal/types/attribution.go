package types

import (
	"net/url"
	"time"
)

// Attribution methods
const (
	MethodInstallReferrer = "play_install_referrer"
	MethodDeepLink        = "deep_link"
	MethodOrganicFallback = "organic_fallback"
)

// UTM query parameter names
const (
	ParamSource   = "utm_source"
	ParamMedium   = "utm_medium"
	ParamCampaign = "utm_campaign"
	ParamContent  = "utm_content"
	ParamTerm     = "utm_term"
)

// UTM holds the five marketing attribution fields.
type UTM struct {
	Source   string `json:"utm_source"`
	Medium   string `json:"utm_medium"`
	Campaign string `json:"utm_campaign"`
	Content  string `json:"utm_content"`
	Term     string `json:"utm_term"`
}

// UTMFromValues extracts UTM fields from parsed query values.
func UTMFromValues(v url.Values) UTM {
	return UTM{
		Source:   v.Get(ParamSource),
		Medium:   v.Get(ParamMedium),
		Campaign: v.Get(ParamCampaign),
		Content:  v.Get(ParamContent),
		Term:     v.Get(ParamTerm),
	}
}

// Empty reports whether none of the five fields is set.
func (u UTM) Empty() bool {
	return u.Source == "" && u.Medium == "" && u.Campaign == "" && u.Content == "" && u.Term == ""
}

// WithDefaults fills Source, Medium and Campaign when missing.
func (u UTM) WithDefaults(source, medium, campaign string) UTM {
	if u.Source == "" {
		u.Source = source
	}
	if u.Medium == "" {
		u.Medium = medium
	}
	if u.Campaign == "" {
		u.Campaign = campaign
	}
	return u
}

// Params flattens the fields into event parameters.
func (u UTM) Params() map[string]string {
	return map[string]string{
		ParamSource:   u.Source,
		ParamMedium:   u.Medium,
		ParamCampaign: u.Campaign,
		ParamContent:  u.Content,
		ParamTerm:     u.Term,
	}
}

// Attribution records how an install or an app open was attributed.
type Attribution struct {
	UTM
	Method    string    `json:"attribution_method"`
	Timestamp time.Time `json:"timestamp"`
	LinkURL   string    `json:"link_url,omitempty"`
}
