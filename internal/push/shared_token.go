package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const (
	sharedTokenKey     = "push:fcm:access_token"
	sharedTokenSkew    = time.Minute
	sharedTokenTimeout = 3 * time.Second
)

// SharedTokenSource keeps the access token in Redis so every API instance
// reuses one token instead of each minting its own. Redis failures fall
// back to the underlying source.
type SharedTokenSource struct {
	client *redis.Client
	key    string
	base   oauth2.TokenSource
}

func NewSharedTokenSource(client *redis.Client, projectID string, base oauth2.TokenSource) *SharedTokenSource {
	return &SharedTokenSource{
		client: client,
		key:    sharedTokenKey + ":" + projectID,
		base:   base,
	}
}

// NewCachedTokenSource layers an in-process cache over a SharedTokenSource,
// so Redis is only consulted once the local token is about to expire.
func NewCachedTokenSource(client *redis.Client, projectID string, base oauth2.TokenSource) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, NewSharedTokenSource(client, projectID, base))
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
}

func (s *SharedTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sharedTokenTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.key).Bytes()
	switch {
	case err == nil:
		var c cachedToken
		if jsonErr := json.Unmarshal(raw, &c); jsonErr == nil && time.Until(c.Expiry) > sharedTokenSkew {
			return &oauth2.Token{AccessToken: c.AccessToken, TokenType: c.TokenType, Expiry: c.Expiry}, nil
		}
	case !errors.Is(err, redis.Nil):
		log.Printf("WARN: read shared push token: %v", err)
	}

	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	ttl := time.Until(tok.Expiry) - sharedTokenSkew
	if tok.Expiry.IsZero() || ttl <= 0 {
		return tok, nil
	}
	data, err := json.Marshal(cachedToken{AccessToken: tok.AccessToken, TokenType: tok.TokenType, Expiry: tok.Expiry})
	if err != nil {
		return tok, nil
	}
	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		log.Printf("WARN: store shared push token: %v", err)
	}
	return tok, nil
}
