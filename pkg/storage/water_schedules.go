package storage

import (
	"context"
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/rs/xid"
)

// GetZonesUsingWaterSchedule will find all Zones that use this WaterSchedule and return the Zones along with the Gardens they belong to
func (c *Client) GetZonesUsingWaterSchedule(ctx context.Context, id xid.ID) ([]*pkg.ZoneAndGarden, error) {
	gardens, err := c.Gardens.GetAll(ctx, FilterEndDated[*pkg.Garden](false))
	if err != nil {
		return nil, fmt.Errorf("unable to get all Gardens: %w", err)
	}

	results := []*pkg.ZoneAndGarden{}
	for _, g := range gardens {
		zones, err := c.GetZonesForGarden(ctx, g.ID, false)
		if err != nil {
			return nil, fmt.Errorf("unable to get all Zones for Garden %q: %w", g.ID, err)
		}

		for _, z := range zones {
			if z.HasWaterSchedule(id) {
				results = append(results, &pkg.ZoneAndGarden{Zone: z, Garden: g})
			}
		}
	}

	return results, nil
}

// GetWaterSchedulesForZone returns the active WaterSchedules a Zone uses. Missing IDs are ignored
func (c *Client) GetWaterSchedulesForZone(ctx context.Context, zone *pkg.Zone) ([]*pkg.WaterSchedule, error) {
	results := []*pkg.WaterSchedule{}
	for _, id := range zone.WaterScheduleIDs {
		ws, err := c.WaterSchedules.Get(ctx, id.String())
		if err != nil {
			return nil, fmt.Errorf("error getting WaterSchedule %q: %w", id, err)
		}
		if ws == nil || ws.EndDated() {
			continue
		}
		results = append(results, ws)
	}
	return results, nil
}
