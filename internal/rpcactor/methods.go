package rpcactor

import (
	"context"

	"cancan-client/internal/actor"
)

func (c *Client) GetVideoChunk(ctx context.Context, videoID string, index int, videoHash []string) ([][]byte, error) {
	return call[[][]byte](ctx, c, "getVideoChunk", videoID, index, nonNil(videoHash))
}

func (c *Client) PutVideoChunk(ctx context.Context, videoID string, index int, data []byte) error {
	return c.exec(ctx, "putVideoChunk", videoID, index, data)
}

func (c *Client) GetUserNameByPrincipal(ctx context.Context, principal actor.Principal) ([]string, error) {
	return call[[]string](ctx, c, "getUserNameByPrincipal", string(principal))
}

func (c *Client) CreateProfile(ctx context.Context, userName string, pic [][]byte) ([]actor.ProfileInfoPlus, error) {
	return call[[]actor.ProfileInfoPlus](ctx, c, "createProfile", userName, nonNil(pic))
}

func (c *Client) GetProfilePlus(ctx context.Context, caller []string, userName string) ([]actor.ProfileInfoPlus, error) {
	return call[[]actor.ProfileInfoPlus](ctx, c, "getProfilePlus", nonNil(caller), userName)
}

func (c *Client) CheckUsernameAvailable(ctx context.Context, userName string) (bool, error) {
	return call[bool](ctx, c, "checkUsernameAvailable", userName)
}

func (c *Client) IsDropDay(ctx context.Context) ([]bool, error) {
	return call[[]bool](ctx, c, "isDropDay")
}

func (c *Client) GetSearchVideos(ctx context.Context, userID string, terms []string, limit []int) ([]actor.VideoResults, error) {
	return call[[]actor.VideoResults](ctx, c, "getSearchVideos", userID, nonNil(terms), nonNil(limit))
}

func (c *Client) GetFeedVideos(ctx context.Context, userID string, limit []int) ([]actor.VideoResults, error) {
	return call[[]actor.VideoResults](ctx, c, "getFeedVideos", userID, nonNil(limit))
}

func (c *Client) GetSharedVideos(ctx context.Context, videoHash []string) ([]actor.VideoResults, error) {
	return call[[]actor.VideoResults](ctx, c, "getSharedVideos", nonNil(videoHash))
}

func (c *Client) GetVideo(ctx context.Context, externalID []string, videoHash []string) ([]actor.VideoResult, error) {
	return call[[]actor.VideoResult](ctx, c, "getVideo", nonNil(externalID), nonNil(videoHash))
}

func (c *Client) GetVideoInfo(ctx context.Context, caller []string, videoID string) ([]actor.VideoInfo, error) {
	return call[[]actor.VideoInfo](ctx, c, "getVideoInfo", nonNil(caller), videoID)
}

func (c *Client) CreateVideo(ctx context.Context, init actor.VideoInit) ([]string, error) {
	return call[[]string](ctx, c, "createVideo", init)
}

func (c *Client) GetProfilePic(ctx context.Context, userID string) ([][]byte, error) {
	return call[[][]byte](ctx, c, "getProfilePic", userID)
}

func (c *Client) PutVideoPic(ctx context.Context, videoID string, pic [][]byte) error {
	return c.exec(ctx, "putVideoPic", videoID, nonNil(pic))
}

func (c *Client) GetVideoPic(ctx context.Context, videoID string) ([][]byte, error) {
	return call[[][]byte](ctx, c, "getVideoPic", videoID)
}

func (c *Client) PutProfileFollow(ctx context.Context, userToFollow, follower string, willFollow bool) error {
	return c.exec(ctx, "putProfileFollow", userToFollow, follower, willFollow)
}

func (c *Client) PutProfileVideoLike(ctx context.Context, userID, videoID string, willLike bool) error {
	return c.exec(ctx, "putProfileVideoLike", userID, videoID, willLike)
}

func (c *Client) PutSuperLike(ctx context.Context, userID, videoID string, willSuperLike bool) error {
	return c.exec(ctx, "putSuperLike", userID, videoID, willSuperLike)
}

func (c *Client) PutRewardTransfer(ctx context.Context, sender, recipient string, amount actor.Nat) error {
	return c.exec(ctx, "putRewardTransfer", sender, recipient, uint64(amount))
}

func (c *Client) PutAbuseFlagVideo(ctx context.Context, reporter, target string, shouldFlag bool) error {
	return c.exec(ctx, "putAbuseFlagVideo", reporter, target, shouldFlag)
}

func (c *Client) GetMessages(ctx context.Context, userName string) ([]actor.Message, error) {
	return call[[]actor.Message](ctx, c, "getMessages", userName)
}

// nonNil keeps an absent optional encoded as an empty array rather than nil.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
