package measurement

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain/geo"
	"github.com/kailas-cloud/floatchat/internal/domain/inventory"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
)

var (
	inventorySQL = fmt.Sprintf(
		"SELECT COUNT(*), COUNT(DISTINCT %[1]s), MIN(%[2]s), MAX(%[2]s), MIN(%[3]s), MAX(%[3]s), MIN(%[4]s), MAX(%[4]s) FROM %[5]s",
		query.ColFloatID, query.ColLatitude, query.ColLongitude, query.ColObservedAt, query.TableObservations,
	)
	profileCountSQL = fmt.Sprintf(
		"SELECT COUNT(*) FROM (SELECT DISTINCT %s, %s FROM %s) AS profiles",
		query.ColFloatID, query.ColCycle, query.TableObservations,
	)
)

// Inventory counts floats, profiles and observations and reports the area and
// time span they cover. A profile is one (float, cycle) pair.
func (s *Store) Inventory(ctx context.Context) (inventory.Measurements, error) {
	var (
		out                            inventory.Measurements
		minLat, maxLat, minLon, maxLon sql.NullFloat64
		first, last                    sql.NullTime
	)

	row := s.db.QueryRowContext(ctx, inventorySQL)
	if err := row.Scan(&out.Observations, &out.Floats, &minLat, &maxLat, &minLon, &maxLon, &first, &last); err != nil {
		return inventory.Measurements{}, classify(fmt.Errorf("inventory: %w", err))
	}
	if err := s.db.QueryRowContext(ctx, profileCountSQL).Scan(&out.Profiles); err != nil {
		return inventory.Measurements{}, classify(fmt.Errorf("profile count: %w", err))
	}

	if minLat.Valid && maxLat.Valid && minLon.Valid && maxLon.Valid {
		out.Bounds = &geo.BBox{
			MinLat: minLat.Float64, MaxLat: maxLat.Float64,
			MinLon: minLon.Float64, MaxLon: maxLon.Float64,
		}
	}
	if first.Valid && last.Valid {
		out.First, out.Last = &first.Time, &last.Time
	}

	s.logger.Debug("Measurement inventory",
		zap.Int64("floats", out.Floats),
		zap.Int64("profiles", out.Profiles),
		zap.Int64("observations", out.Observations),
	)
	return out, nil
}
