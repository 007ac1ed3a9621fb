package actor

import "context"

// ChunkSource fetches one chunk of a video. index is 1-based. videoHash is an optional
// variant scope; the returned slice is an optional chunk payload.
type ChunkSource interface {
	GetVideoChunk(ctx context.Context, videoID string, index int, videoHash []string) ([][]byte, error)
}

// ChunkSink stores one chunk of a video. index is 1-based.
type ChunkSink interface {
	PutVideoChunk(ctx context.Context, videoID string, index int, data []byte) error
}

// Actor is the full call surface of the backend. Every []T result or argument that the
// backend declares optional holds zero or one element.
type Actor interface {
	ChunkSource
	ChunkSink

	GetUserNameByPrincipal(ctx context.Context, principal Principal) ([]string, error)
	CreateProfile(ctx context.Context, userName string, pic [][]byte) ([]ProfileInfoPlus, error)
	GetProfilePlus(ctx context.Context, caller []string, userName string) ([]ProfileInfoPlus, error)
	CheckUsernameAvailable(ctx context.Context, userName string) (bool, error)
	IsDropDay(ctx context.Context) ([]bool, error)

	GetSearchVideos(ctx context.Context, userID string, terms []string, limit []int) ([]VideoResults, error)
	GetFeedVideos(ctx context.Context, userID string, limit []int) ([]VideoResults, error)
	GetSharedVideos(ctx context.Context, videoHash []string) ([]VideoResults, error)
	GetVideo(ctx context.Context, externalID []string, videoHash []string) ([]VideoResult, error)
	GetVideoInfo(ctx context.Context, caller []string, videoID string) ([]VideoInfo, error)
	CreateVideo(ctx context.Context, init VideoInit) ([]string, error)

	GetProfilePic(ctx context.Context, userID string) ([][]byte, error)
	PutVideoPic(ctx context.Context, videoID string, pic [][]byte) error
	GetVideoPic(ctx context.Context, videoID string) ([][]byte, error)

	PutProfileFollow(ctx context.Context, userToFollow, follower string, willFollow bool) error
	PutProfileVideoLike(ctx context.Context, userID, videoID string, willLike bool) error
	PutSuperLike(ctx context.Context, userID, videoID string, willSuperLike bool) error
	PutRewardTransfer(ctx context.Context, sender, recipient string, amount Nat) error
	PutAbuseFlagVideo(ctx context.Context, reporter, target string, shouldFlag bool) error

	GetMessages(ctx context.Context, userName string) ([]Message, error)
}
