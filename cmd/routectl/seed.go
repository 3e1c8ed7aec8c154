package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/service"
)

type seedFile struct {
	Offices []struct {
		ID      string   `yaml:"id"`
		Name    string   `yaml:"name"`
		Address string   `yaml:"address"`
		Lat     *float64 `yaml:"lat"`
		Lon     *float64 `yaml:"lon"`
	} `yaml:"offices"`
	Managers []struct {
		ID       string   `yaml:"id"`
		FullName string   `yaml:"full_name"`
		Position string   `yaml:"position"`
		OfficeID string   `yaml:"office_id"`
		Skills   []string `yaml:"skills"`
		Workload int      `yaml:"workload"`
	} `yaml:"managers"`
	Tickets []struct {
		ID          string `yaml:"id"`
		GUID        string `yaml:"guid"`
		Segment     string `yaml:"segment"`
		Country     string `yaml:"country"`
		Region      string `yaml:"region"`
		City        string `yaml:"city"`
		Street      string `yaml:"street"`
		Building    string `yaml:"building"`
		Description string `yaml:"description"`
		Attachment  string `yaml:"attachment"`
	} `yaml:"tickets"`
}

type seedData struct {
	Offices  []models.Office
	Managers []*models.Manager
	Tickets  []models.Ticket
}

type seedResult struct {
	Offices         int   `json:"offices"`
	Managers        int   `json:"managers"`
	Tickets         int   `json:"tickets"`
	TicketsInserted int64 `json:"tickets_inserted"`
}

func parseSeed(r io.Reader) (seedData, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return seedData{}, fmt.Errorf("decode seed: %w", err)
	}

	var out seedData
	for i, o := range f.Offices {
		if o.ID == "" || strings.TrimSpace(o.Name) == "" {
			return seedData{}, fmt.Errorf("office %d: id and name are required", i)
		}
		office := models.Office{ID: o.ID, Name: strings.TrimSpace(o.Name), Address: o.Address}
		if o.Lat != nil && o.Lon != nil {
			office.Coordinates = &models.Coordinates{Lat: *o.Lat, Lon: *o.Lon}
		}
		out.Offices = append(out.Offices, office)
	}
	for i, m := range f.Managers {
		if m.ID == "" || m.OfficeID == "" {
			return seedData{}, fmt.Errorf("manager %d: id and office_id are required", i)
		}
		out.Managers = append(out.Managers, models.NewManager(m.ID, m.FullName, strings.TrimSpace(m.Position), m.OfficeID, m.Skills, m.Workload))
	}
	for i, t := range f.Tickets {
		if t.ID == "" {
			return seedData{}, fmt.Errorf("ticket %d: id is required", i)
		}
		segment := strings.TrimSpace(t.Segment)
		if segment == "" {
			segment = models.SegmentMass
		}
		out.Tickets = append(out.Tickets, models.Ticket{
			ID:          t.ID,
			GUID:        t.GUID,
			Segment:     segment,
			Country:     t.Country,
			Region:      t.Region,
			City:        t.City,
			Street:      t.Street,
			Building:    t.Building,
			Description: t.Description,
			Attachment:  t.Attachment,
		})
	}
	return out, nil
}

// seedFromFile upserts offices and managers, then inserts new tickets.
func seedFromFile(ctx context.Context, store service.Store, path string) (seedResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return seedResult{}, err
	}
	defer f.Close()

	data, err := parseSeed(f)
	if err != nil {
		return seedResult{}, err
	}
	res := seedResult{Offices: len(data.Offices), Managers: len(data.Managers), Tickets: len(data.Tickets)}
	if len(data.Offices) > 0 {
		if err := store.UpsertOffices(ctx, data.Offices); err != nil {
			return res, err
		}
	}
	if len(data.Managers) > 0 {
		if err := store.UpsertManagers(ctx, data.Managers); err != nil {
			return res, err
		}
	}
	if len(data.Tickets) > 0 {
		res.TicketsInserted, err = store.InsertTickets(ctx, data.Tickets)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
