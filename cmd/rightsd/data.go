package main

import (
	"context"
	"time"

	"github.com/goliatone/go-rights/rights"
)

// seedDemoData loads a small rights catalog so the dashboard has
// contracts, grants, and conflicts to show before any upload.
func seedDemoData(ctx context.Context, store rights.ContractStore, now time.Time) error {
	actor := rights.Actor{ID: "demo-user", Scope: rights.Scope{TenantID: "demo-tenant"}}

	contracts := []rights.Contract{
		{
			ID:         "seed-contract-1",
			Title:      "Falcon Run SVOD License",
			Licensor:   "Apex Studios",
			Licensee:   "StreamCo",
			Filename:   "falcon-run-svod.pdf",
			SourceType: "pdf",
			SignedAt:   time.Date(2024, 11, 12, 0, 0, 0, 0, time.UTC),
			UploadedBy: actor,
			Scope:      actor.Scope,
			CreatedAt:  now.Add(-72 * time.Hour),
			Grants: []rights.RightsGrant{
				{
					ID:          "seed-grant-1",
					ContractID:  "seed-contract-1",
					Work:        "Falcon Run",
					Licensee:    "StreamCo",
					Media:       rights.MediaSVOD,
					Territories: []string{"US", "CA"},
					Window: rights.Window{
						Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
						End:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
					},
					Exclusive: true,
					FeeCents:  250_000_00,
					Currency:  "USD",
					Holdbacks: []rights.Holdback{
						{
							Media:       rights.MediaAVOD,
							Territories: []string{"US"},
							Window: rights.Window{
								Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
								End:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
							},
							Reason: "protect launch-year SVOD exclusivity",
						},
					},
				},
			},
		},
		{
			ID:         "seed-contract-2",
			Title:      "Falcon Run AVOD Deal",
			Licensor:   "Apex Studios",
			Licensee:   "AdFlix",
			Filename:   "falcon-run-avod.docx",
			SourceType: "docx",
			SignedAt:   time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
			UploadedBy: actor,
			Scope:      actor.Scope,
			CreatedAt:  now.Add(-48 * time.Hour),
			Grants: []rights.RightsGrant{
				{
					ID:          "seed-grant-2",
					ContractID:  "seed-contract-2",
					Work:        "Falcon Run",
					Licensee:    "AdFlix",
					Media:       rights.MediaAVOD,
					Territories: []string{"US"},
					Window: rights.Window{
						Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
						End:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
					},
					FeeCents: 40_000_00,
					Currency: "USD",
				},
			},
		},
		{
			ID:         "seed-contract-3",
			Title:      "Harbor Lights Worldwide Rights",
			Licensor:   "Meridian Pictures",
			Licensee:   "GlobalTV",
			Filename:   "harbor-lights.pdf",
			SourceType: "pdf",
			SignedAt:   time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
			UploadedBy: actor,
			Scope:      actor.Scope,
			CreatedAt:  now.Add(-24 * time.Hour),
			Grants: []rights.RightsGrant{
				{
					ID:          "seed-grant-3",
					ContractID:  "seed-contract-3",
					Work:        "Harbor Lights",
					Licensee:    "GlobalTV",
					Media:       rights.MediaAll,
					Territories: []string{rights.TerritoryWorldwide},
					Window: rights.Window{
						Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
						End:   time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
					},
					Exclusive: true,
					FeeCents:  1_200_000_00,
					Currency:  "USD",
				},
				{
					ID:          "seed-grant-4",
					ContractID:  "seed-contract-3",
					Work:        "Harbor Lights",
					Licensee:    "NordStream",
					Media:       rights.MediaSVOD,
					Territories: []string{"SE", "NO", "DK"},
					Window: rights.Window{
						Start: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
						End:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
					},
					Exclusive: true,
					FeeCents:  80_000_00,
					Currency:  "EUR",
				},
			},
		},
	}

	var grants []rights.RightsGrant
	for _, contract := range contracts {
		if err := store.SaveContract(ctx, contract); err != nil {
			return err
		}
		grants = append(grants, contract.Grants...)
	}

	return store.ReplaceConflicts(ctx, rights.DetectConflicts(grants, now))
}
