package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/freedom_case_2/fire-router/internal/geo"
	"github.com/freedom_case_2/fire-router/internal/geocode"
)

type GeocodeResult struct {
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}

// GeocodingService fills stored coordinates for offices the canonical table
// does not cover.
type GeocodingService struct {
	Store    Store
	Geocoder geocode.Geocoder
	Geo      geo.Index
	Country  string
	Logger   zerolog.Logger
}

func (s *GeocodingService) GeocodeOffices(ctx context.Context, force bool) (GeocodeResult, error) {
	var res GeocodeResult
	if s.Geocoder == nil {
		return res, errors.New("geocoder is not configured")
	}
	offices, err := s.Store.ListOffices(ctx)
	if err != nil {
		return res, err
	}

	for _, o := range offices {
		if !geocode.ShouldGeocode(o, s.Geo, force) {
			continue
		}
		res.Checked++
		r, err := s.Geocoder.Geocode(ctx, geocode.BuildQuery(s.Country, o.Name, o.Address))
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			s.Logger.Warn().Err(err).Str("office", o.Name).Msg("geocode failed")
			res.Failed = append(res.Failed, o.Name)
			continue
		}
		if err := s.Store.UpdateOfficeCoordinates(ctx, o.ID, r.Coordinates); err != nil {
			return res, err
		}
		res.Updated++
		s.Logger.Info().
			Str("office", o.Name).
			Float64("lat", r.Coordinates.Lat).
			Float64("lon", r.Coordinates.Lon).
			Str("display_name", r.DisplayName).
			Msg("office geocoded")
	}
	return res, nil
}
