package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseAnthropicHeaders extracts rate limit info from Anthropic's
// Messages API response headers.
func ParseAnthropicHeaders(h http.Header) RateLimitInfo {
	info := RateLimitInfo{}
	if ra := h.Get("retry-after"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			info.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	for _, header := range []string{
		"anthropic-ratelimit-input-tokens-reset",
		"anthropic-ratelimit-output-tokens-reset",
		"anthropic-ratelimit-requests-reset",
	} {
		if rs := h.Get(header); rs != "" {
			if t, err := time.Parse(time.RFC3339, rs); err == nil {
				info.ResetTime = t.Unix()
				break
			}
		}
	}
	if rem := h.Get("anthropic-ratelimit-requests-remaining"); rem != "" {
		info.RequestsRemaining, _ = strconv.Atoi(rem)
	}
	return info
}

// ParseOpenAIHeaders extracts rate limit info from OpenAI-style headers,
// also used for the OpenAI-compatible embedding endpoint.
func ParseOpenAIHeaders(h http.Header) RateLimitInfo {
	info := RateLimitInfo{}
	if ra := h.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			info.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	if rem := h.Get("x-ratelimit-remaining-requests"); rem != "" {
		info.RequestsRemaining, _ = strconv.Atoi(rem)
	}
	if rem := h.Get("x-ratelimit-remaining-tokens"); rem != "" {
		info.TokensRemaining, _ = strconv.Atoi(rem)
	}
	return info
}

// ParseRetryAfterOnly handles providers (Cohere, Mistral) that expose
// nothing richer than a plain Retry-After header.
func ParseRetryAfterOnly(h http.Header) RateLimitInfo {
	info := RateLimitInfo{}
	if ra := h.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			info.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return info
}
