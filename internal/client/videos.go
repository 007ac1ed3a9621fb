package client

import (
	"context"
	"fmt"

	"cancan-client/internal/actor"
	"cancan-client/internal/optional"
	"cancan-client/internal/playback"
)

// GetSearchVideos searches the user's visible videos. An absent limit lets the actor choose.
func (c *Client) GetSearchVideos(ctx context.Context, userID string, terms []string, limit optional.Value[int]) ([]actor.VideoInfo, error) {
	raw, err := c.actor.GetSearchVideos(ctx, userID, terms, optional.Encode(limit))
	if err != nil {
		return nil, err
	}
	return videoInfos("getSearchVideos", raw)
}

func (c *Client) GetFeedVideos(ctx context.Context, userID string) ([]actor.VideoInfo, error) {
	raw, err := c.actor.GetFeedVideos(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	return videoInfos("getFeedVideos", raw)
}

func (c *Client) GetSharedVideos(ctx context.Context, videoHash string) ([]actor.VideoInfo, error) {
	raw, err := c.actor.GetSharedVideos(ctx, []string{videoHash})
	if err != nil {
		return nil, err
	}
	return videoInfos("getSharedVideos", raw)
}

// videoInfos decodes an optional result list; an absent list is empty.
func videoInfos(method string, raw []actor.VideoResults) ([]actor.VideoInfo, error) {
	results, err := optional.Unwrap(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	list := results.OrZero()
	out := make([]actor.VideoInfo, 0, len(list))
	for _, r := range list {
		out = append(out, r.Info)
	}
	return out, nil
}

// GetVideo returns nil when no video matches.
func (c *Client) GetVideo(ctx context.Context, externalID, videoHash string) (*actor.VideoInfo, error) {
	raw, err := c.actor.GetVideo(ctx, []string{externalID}, []string{videoHash})
	if err != nil {
		return nil, err
	}
	res, err := optional.Unwrap(raw)
	if err != nil {
		return nil, fmt.Errorf("getVideo: %w", err)
	}
	r, ok := res.Get()
	if !ok {
		return nil, nil
	}
	return &r.Info, nil
}

func (c *Client) GetVideoInfo(ctx context.Context, userID, videoID string) (actor.VideoInfo, error) {
	raw, err := c.actor.GetVideoInfo(ctx, []string{userID}, videoID)
	if err != nil {
		return actor.VideoInfo{}, err
	}
	info, err := optional.Unwrap(raw)
	if err != nil {
		return actor.VideoInfo{}, fmt.Errorf("getVideoInfo: %w", err)
	}
	v, ok := info.Get()
	if !ok {
		return actor.VideoInfo{}, fmt.Errorf("%w with id: %s", ErrVideoNotFound, videoID)
	}
	return v, nil
}

func (c *Client) CreateVideo(ctx context.Context, init actor.VideoInit) (string, error) {
	raw, err := c.actor.CreateVideo(ctx, init)
	if err != nil {
		return "", err
	}
	id, err := optional.Unwrap(raw)
	if err != nil {
		return "", fmt.Errorf("createVideo: %w", err)
	}
	v, ok := id.Get()
	if !ok || v == "" {
		return "", fmt.Errorf("failed to create video: %w", ErrCreateFailed)
	}
	return v, nil
}

// GetVideoChunks assembles the video into a playback handle the caller must revoke.
func (c *Client) GetVideoChunks(ctx context.Context, info actor.VideoInfo, videoHash optional.Value[string]) (playback.Handle, error) {
	return c.videos.AssembleVideo(ctx, info, videoHash)
}

func (c *Client) PutVideoChunk(ctx context.Context, videoID string, chunkNum int, data []byte) error {
	return c.actor.PutVideoChunk(ctx, videoID, chunkNum, data)
}

func (c *Client) PutVideoPic(ctx context.Context, videoID string, pic []byte) error {
	return c.actor.PutVideoPic(ctx, videoID, [][]byte{pic})
}

func (c *Client) GetVideoPic(ctx context.Context, videoID string) ([]byte, error) {
	raw, err := c.actor.GetVideoPic(ctx, videoID)
	if err != nil {
		return nil, err
	}
	pic, err := optional.Unwrap(raw)
	if err != nil {
		return nil, fmt.Errorf("getVideoPic: %w", err)
	}
	v, ok := pic.Get()
	if !ok {
		return nil, ErrEmptyPic
	}
	return v, nil
}
