package game

import (
	"github.com/shaktris/shaktris/internal/board"
)

// Home zones are laid out in facing pairs marching along +x. An even join
// opens a new column facing +z; the following odd join closes it from the
// far side of the channel facing -z, so pawns of a pair advance toward
// each other.
const (
	zoneColumnSpacing = board.HomeZoneWidth + 4
	zoneChannelDepth  = 16
)

// zoneForIndex returns the home zone for the idx-th allocation of a game.
// The layout never reuses an index, so zones cannot overlap.
func zoneForIndex(playerID string, idx int) board.HomeZone {
	x := (idx / 2) * zoneColumnSpacing
	if idx%2 == 0 {
		return board.HomeZone{
			PlayerID:    playerID,
			Min:         board.Point{X: x, Z: 0},
			Max:         board.Point{X: x + board.HomeZoneWidth - 1, Z: board.HomeZoneDepth - 1},
			Orientation: board.FacingPosZ,
		}
	}
	return board.HomeZone{
		PlayerID:    playerID,
		Min:         board.Point{X: x, Z: zoneChannelDepth},
		Max:         board.Point{X: x + board.HomeZoneWidth - 1, Z: zoneChannelDepth + board.HomeZoneDepth - 1},
		Orientation: board.FacingNegZ,
	}
}
