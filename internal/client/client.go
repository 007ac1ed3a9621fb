// Package client is the front end's view of the actor. Each method makes one actor call,
// decodes optional results at the boundary and returns plain Go values.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cancan-client/internal/actor"
	"cancan-client/internal/config"
	"cancan-client/internal/metrics"
	"cancan-client/internal/optional"
	"cancan-client/internal/playback"

	"go.uber.org/zap"
)

// DefaultSearchLimit is the result cap a search uses when the caller names none.
const DefaultSearchLimit = 3

var (
	ErrNotFound      = errors.New("not found")
	ErrVideoNotFound = errors.New("no video found")
	ErrNoPrincipal   = errors.New("trying to create user without principal")
	ErrCreateFailed  = errors.New("actor returned nothing")
	ErrEmptyPic      = errors.New("pic should not be empty")
)

// ProfileCache holds profiles between sessions.
type ProfileCache interface {
	GetProfile(ctx context.Context, key string) (*actor.ProfileInfoPlus, error)
	PutProfile(ctx context.Context, key string, profile actor.ProfileInfoPlus, ttl time.Duration) error
	DeleteProfile(ctx context.Context, key string) error
}

// VideoAssembler turns chunked video metadata into a playback handle.
type VideoAssembler interface {
	AssembleVideo(ctx context.Context, info actor.VideoInfo, variant optional.Value[string]) (playback.Handle, error)
}

type Client struct {
	actor    actor.Actor
	cache    ProfileCache
	videos   VideoAssembler
	cacheTTL time.Duration
	log      *zap.Logger
}

// New returns a client. cache may be nil, in which case profiles are always read from
// the actor.
func New(a actor.Actor, cache ProfileCache, videos VideoAssembler, cfg *config.Config, log *zap.Logger) *Client {
	return &Client{actor: a, cache: cache, videos: videos, cacheTTL: cfg.ProfileCacheTTL, log: log}
}

func (c *Client) GetUserNameByPrincipal(ctx context.Context, principal actor.Principal) (string, error) {
	raw, err := c.actor.GetUserNameByPrincipal(ctx, principal)
	if err != nil {
		return "", err
	}
	name, err := optional.Unwrap(raw)
	if err != nil {
		return "", fmt.Errorf("getUserNameByPrincipal: %w", err)
	}
	v, ok := name.Get()
	if !ok {
		return "", fmt.Errorf("user for principal %s: %w", principal, ErrNotFound)
	}
	return v, nil
}

func (c *Client) CreateUser(ctx context.Context, userID string, principal actor.Principal) (actor.ProfileInfoPlus, error) {
	if principal == "" {
		return actor.ProfileInfoPlus{}, ErrNoPrincipal
	}
	raw, err := c.actor.CreateProfile(ctx, userID, nil)
	if err != nil {
		return actor.ProfileInfoPlus{}, err
	}
	profile, err := optional.Unwrap(raw)
	if err != nil {
		return actor.ProfileInfoPlus{}, fmt.Errorf("createProfile: %w", err)
	}
	p, ok := profile.Get()
	if !ok {
		return actor.ProfileInfoPlus{}, fmt.Errorf("failed to create profile %s: %w", userID, ErrCreateFailed)
	}
	return p, nil
}

// FindOrCreateUser looks the user up in the profile cache, then the actor, and creates
// the profile when neither has it. A creation failure is returned to the caller.
func (c *Client) FindOrCreateUser(ctx context.Context, userID string, principal actor.Principal, cacheKey string) (actor.ProfileInfoPlus, error) {
	if c.cache != nil {
		cached, err := c.cache.GetProfile(ctx, cacheKey)
		if err != nil {
			metrics.RedisErrors.Inc()
			c.log.Warn("Profile cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if cached != nil {
			metrics.ProfileCacheHits.Inc()
			return *cached, nil
		}
	}

	found, err := c.GetUserFromActor(ctx, userID)
	if err != nil {
		return actor.ProfileInfoPlus{}, err
	}
	if found != nil {
		c.remember(ctx, cacheKey, *found)
		return *found, nil
	}

	created, err := c.CreateUser(ctx, userID, principal)
	if err != nil {
		return actor.ProfileInfoPlus{}, fmt.Errorf("couldn't find or create user %s: %w", userID, err)
	}
	c.log.Info("Created user profile", zap.String("user_id", userID))
	c.remember(ctx, cacheKey, created)
	return created, nil
}

func (c *Client) remember(ctx context.Context, key string, p actor.ProfileInfoPlus) {
	if c.cache == nil {
		return
	}
	if err := c.cache.PutProfile(ctx, key, p, c.cacheTTL); err != nil {
		metrics.RedisErrors.Inc()
		c.log.Warn("Profile cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// ForgetUser drops a cached profile, e.g. on sign-out.
func (c *Client) ForgetUser(ctx context.Context, cacheKey string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.DeleteProfile(ctx, cacheKey)
}

func (c *Client) IsDropDay(ctx context.Context) (bool, error) {
	raw, err := c.actor.IsDropDay(ctx)
	if err != nil {
		return false, err
	}
	v, err := optional.Unwrap(raw)
	if err != nil {
		return false, fmt.Errorf("isDropDay: %w", err)
	}
	return v.OrZero(), nil
}

// GetUserFromActor returns nil when the actor has no profile for userID.
func (c *Client) GetUserFromActor(ctx context.Context, userID string) (*actor.ProfileInfoPlus, error) {
	raw, err := c.actor.GetProfilePlus(ctx, []string{userID}, userID)
	if err != nil {
		return nil, err
	}
	p, err := optional.Unwrap(raw)
	if err != nil {
		return nil, fmt.Errorf("getProfilePlus: %w", err)
	}
	return p.Ptr(), nil
}

func (c *Client) CheckUsername(ctx context.Context, userName string) (bool, error) {
	return c.actor.CheckUsernameAvailable(ctx, userName)
}

func (c *Client) GetProfilePic(ctx context.Context, userID string) ([]byte, error) {
	raw, err := c.actor.GetProfilePic(ctx, userID)
	if err != nil {
		return nil, err
	}
	pic, err := optional.Unwrap(raw)
	if err != nil {
		return nil, fmt.Errorf("getProfilePic: %w", err)
	}
	return pic.OrZero(), nil
}

func (c *Client) GetMessages(ctx context.Context, userName string) ([]actor.Message, error) {
	return c.actor.GetMessages(ctx, userName)
}

func (c *Client) Follow(ctx context.Context, userToFollow, follower string, willFollow bool) error {
	err := c.actor.PutProfileFollow(ctx, userToFollow, follower, willFollow)
	if err != nil {
		c.log.Error("Follow failed", zap.String("user", userToFollow), zap.String("follower", follower), zap.Error(err))
	}
	return err
}

func (c *Client) Like(ctx context.Context, userID, videoID string, willLike bool) error {
	err := c.actor.PutProfileVideoLike(ctx, userID, videoID, willLike)
	if err != nil {
		c.log.Error("Like failed", zap.String("user_id", userID), zap.String("video_id", videoID), zap.Error(err))
	}
	return err
}

func (c *Client) SuperLike(ctx context.Context, userID, videoID string, willSuperLike bool) error {
	err := c.actor.PutSuperLike(ctx, userID, videoID, willSuperLike)
	if err != nil {
		c.log.Error("Super like failed", zap.String("user_id", userID), zap.String("video_id", videoID), zap.Error(err))
	}
	return err
}

func (c *Client) PutRewardTransfer(ctx context.Context, sender, recipient string, amount actor.Nat) error {
	return c.actor.PutRewardTransfer(ctx, sender, recipient, amount)
}

func (c *Client) PutAbuseFlagVideo(ctx context.Context, reporter, target string, shouldFlag bool) error {
	return c.actor.PutAbuseFlagVideo(ctx, reporter, target, shouldFlag)
}
