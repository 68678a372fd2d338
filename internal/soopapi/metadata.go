package soopapi

import (
	"context"
	"fmt"
	"time"

	"github.com/you/soopcast/internal/core"
)

// FetchMetadata combines the station and live endpoints into one
// broadcast snapshot. Returns ErrOffline when the channel is not
// currently broadcasting.
func (c *Client) FetchMetadata(ctx context.Context, channelID string) (core.BroadcastMetadata, error) {
	station, err := c.GetStation(ctx, channelID)
	if err != nil {
		return core.BroadcastMetadata{}, fmt.Errorf("soopapi: fetch station: %w", err)
	}
	if !station.IsLive {
		return core.BroadcastMetadata{}, ErrOffline
	}

	detail, err := c.GetLiveDetail(ctx, channelID)
	if err != nil {
		return core.BroadcastMetadata{}, fmt.Errorf("soopapi: fetch live detail: %w", err)
	}
	if !detail.Live {
		return core.BroadcastMetadata{}, ErrOffline
	}

	return core.BroadcastMetadata{
		ChannelID:   channelID,
		Title:       detail.Title,
		StartedAt:   station.BroadStart,
		ViewerCount: station.ViewerCount,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// UpdateViewerCount refreshes only the viewer count, the one field that
// changes between full metadata fetches.
func (c *Client) UpdateViewerCount(ctx context.Context, channelID string) (uint64, error) {
	station, err := c.GetStation(ctx, channelID)
	if err != nil {
		return 0, err
	}
	if !station.IsLive {
		return 0, ErrOffline
	}
	return station.ViewerCount, nil
}
