// Package actor describes the remote backend ("the actor"): its wire types and the calls it
// exposes. Optional values keep the actor's encoding here (a zero- or one-element slice)
// and are decoded by callers with the optional package.
package actor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Principal is the textual form of a caller identity.
type Principal string

// Nat is the actor's unbounded natural number. Values above uint64 are not produced by
// the actor for any field this client reads.
type Nat uint64

// Int coerces n to an int for use as a loop bound or index.
func (n Nat) Int() (int, error) {
	if uint64(n) > math.MaxInt {
		return 0, fmt.Errorf("nat %d overflows int", uint64(n))
	}
	return int(n), nil
}

// MarshalJSON writes n as a decimal string so JavaScript callers do not lose precision.
func (n Nat) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(n), 10))
}

// UnmarshalJSON accepts both a decimal string and a bare number.
func (n *Nat) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var u uint64
		if err := json.Unmarshal(b, &u); err != nil {
			return fmt.Errorf("nat: %w", err)
		}
		*n = Nat(u)
		return nil
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("nat: %w", err)
	}
	*n = Nat(u)
	return nil
}

type VideoInfo struct {
	VideoID        string   `msgpack:"videoId" json:"videoId"`
	UserID         string   `msgpack:"userId" json:"userId"`
	Pic            [][]byte `msgpack:"pic" json:"-"`
	CreatedAt      int64    `msgpack:"createdAt" json:"createdAt"`
	UploadedAt     int64    `msgpack:"uploadedAt" json:"uploadedAt"`
	Caption        string   `msgpack:"caption" json:"caption"`
	Tags           []string `msgpack:"tags" json:"tags"`
	Likes          []string `msgpack:"likes" json:"likes"`
	SuperLikes     []string `msgpack:"superLikes" json:"superLikes"`
	ViewCount      Nat      `msgpack:"viewCount" json:"viewCount"`
	Name           string   `msgpack:"name" json:"name"`
	ChunkCount     Nat      `msgpack:"chunkCount" json:"chunkCount"`
	ViralAt        []int64  `msgpack:"viralAt" json:"-"`
	AbuseFlagCount Nat      `msgpack:"abuseFlagCount" json:"abuseFlagCount"`
}

// VideoResult is the actor's (VideoInfo, ?VideoPic) tuple.
type VideoResult struct {
	_msgpack struct{} `msgpack:",as_array"`
	Info     VideoInfo
	Pic      [][]byte
}

type VideoResults []VideoResult

type VideoInit struct {
	UserID     string   `msgpack:"userId" json:"userId"`
	Name       string   `msgpack:"name" json:"name"`
	CreatedAt  int64    `msgpack:"createdAt" json:"createdAt"`
	Caption    string   `msgpack:"caption" json:"caption"`
	Tags       []string `msgpack:"tags" json:"tags"`
	ChunkCount Nat      `msgpack:"chunkCount" json:"chunkCount"`
}

type ProfileInfo struct {
	UserName       string   `msgpack:"userName" json:"userName"`
	Following      []string `msgpack:"following" json:"following"`
	Followers      []string `msgpack:"followers" json:"followers"`
	UploadedVideos []string `msgpack:"uploadedVideos" json:"uploadedVideos"`
	LikedVideos    []string `msgpack:"likedVideos" json:"likedVideos"`
	HasPic         bool     `msgpack:"hasPic" json:"hasPic"`
	Rewards        Nat      `msgpack:"rewards" json:"rewards"`
	AbuseFlagCount Nat      `msgpack:"abuseFlagCount" json:"abuseFlagCount"`
}

type ProfileInfoPlus struct {
	UserName       string        `msgpack:"userName" json:"userName"`
	Following      []ProfileInfo `msgpack:"following" json:"following"`
	Followers      []ProfileInfo `msgpack:"followers" json:"followers"`
	UploadedVideos []VideoInfo   `msgpack:"uploadedVideos" json:"uploadedVideos"`
	LikedVideos    []VideoInfo   `msgpack:"likedVideos" json:"likedVideos"`
	HasPic         bool          `msgpack:"hasPic" json:"hasPic"`
	Rewards        Nat           `msgpack:"rewards" json:"rewards"`
	AbuseFlagCount Nat           `msgpack:"abuseFlagCount" json:"abuseFlagCount"`
}

// Event kinds carried by Message.
const (
	EventRewardTransfer = "rewardTransfer"
	EventSuperLike      = "superLikerReward"
	EventUploadReward   = "uploadReward"
)

type Event struct {
	Kind    string `msgpack:"kind" json:"kind"`
	VideoID string `msgpack:"videoId,omitempty" json:"videoId,omitempty"`
	Sender  string `msgpack:"sender,omitempty" json:"sender,omitempty"`
	Amount  Nat    `msgpack:"amount" json:"amount"`
}

type Message struct {
	ID    Nat   `msgpack:"id" json:"id"`
	Time  int64 `msgpack:"time" json:"time"`
	Event Event `msgpack:"event" json:"event"`
}
