package services

import (
	"context"

	"github.com/dmitrijs2005/redditscheduler/internal/server/reddit"
)

// Provider is the part of the provider API the services call.
// *reddit.Client implements it.
type Provider interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*reddit.Token, error)
	Me(ctx context.Context, accessToken string) (string, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	Submit(ctx context.Context, accessToken string, s reddit.Submission) (*reddit.SubmitResult, error)
}
