package storage

import (
	"context"
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/rs/xid"
)

// GetGardenByTopicPrefix returns the active Garden that uses the topic prefix, or nil if there is none
func (c *Client) GetGardenByTopicPrefix(ctx context.Context, topicPrefix string) (*pkg.Garden, error) {
	gardens, err := c.Gardens.GetAll(ctx, func(g *pkg.Garden) bool {
		return !g.EndDated() && g.TopicPrefix == topicPrefix
	})
	if err != nil {
		return nil, fmt.Errorf("error getting all gardens: %w", err)
	}
	if len(gardens) == 0 {
		return nil, nil
	}
	return gardens[0], nil
}

// GetZonesForGarden returns a Garden's Zones
func (c *Client) GetZonesForGarden(ctx context.Context, gardenID xid.ID, getEndDated bool) ([]*pkg.Zone, error) {
	end := FilterEndDated[*pkg.Zone](getEndDated)
	return c.Zones.GetAll(ctx, func(z *pkg.Zone) bool {
		return z.GardenID == gardenID && end(z)
	})
}

// GetZoneByPosition finds the active Zone at a valve position in the Garden, or nil if there is none
func (c *Client) GetZoneByPosition(ctx context.Context, gardenID xid.ID, position uint) (*pkg.Zone, error) {
	zones, err := c.GetZonesForGarden(ctx, gardenID, false)
	if err != nil {
		return nil, fmt.Errorf("error getting zones for garden %q: %w", gardenID, err)
	}
	for _, z := range zones {
		if z.Position != nil && *z.Position == position {
			return z, nil
		}
	}
	return nil, nil
}
