package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rueda-la-rola/leadgen/internal/model"
	"github.com/rueda-la-rola/leadgen/pkg/places"
)

var (
	searchCategory string
	searchCity     string
	searchLat      float64
	searchLng      float64
	searchPages    int
	searchFilter   string
)

// buildQuery folds the city into the query text unless coordinates were
// given; a bias point and a city name would fight each other.
func buildQuery(category, city string, hasCoords bool) string {
	if city != "" && !hasCoords {
		return category + " in " + city
	}
	return category
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for local businesses",
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchCategory == "" {
			return eris.New("--category is required")
		}
		hasCoords := cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng")
		if searchCity == "" && !hasCoords {
			return eris.New("--city or --lat/--lng is required")
		}

		pc, err := initPlaces()
		if err != nil {
			return err
		}

		query := buildQuery(searchCategory, searchCity, hasCoords)
		var bias *model.LatLng
		if hasCoords {
			bias = &model.LatLng{Latitude: searchLat, Longitude: searchLng}
		}

		var results []model.Place
		seen := map[string]bool{}
		pageToken := ""
		for page := 0; page < searchPages; page++ {
			resp, err := pc.SearchText(cmd.Context(), places.SearchRequest{
				Query:        query,
				PageToken:    pageToken,
				LocationBias: bias,
			})
			if err != nil {
				return eris.Wrap(err, "search")
			}
			for _, p := range resp.Places {
				if seen[p.PlaceID] {
					continue
				}
				seen[p.PlaceID] = true
				results = append(results, p)
			}
			if resp.NextPageToken == "" {
				break
			}
			pageToken = resp.NextPageToken
		}

		zap.L().Info("search complete",
			zap.String("query", query),
			zap.Int("results", len(results)),
		)

		rows := make([][]string, 0, len(results))
		for _, p := range results {
			hasWeb := p.HasEffectiveWebsite()
			switch searchFilter {
			case "no-web":
				if hasWeb {
					continue
				}
			case "with-web":
				if !hasWeb {
					continue
				}
			}
			website, phone := "-", "-"
			if hasWeb {
				website = *p.Website
			}
			if p.Phone != nil {
				phone = *p.Phone
			}
			rows = append(rows, []string{p.Name, p.Address, phone, website, p.PlaceID})
		}

		fmt.Println(renderTable(
			[]string{"Name", "Address", "Phone", "Website", "Place ID"},
			rows,
		))
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "business category to search for")
	searchCmd.Flags().StringVar(&searchCity, "city", "", "city to search in")
	searchCmd.Flags().Float64Var(&searchLat, "lat", 0, "latitude to bias results toward")
	searchCmd.Flags().Float64Var(&searchLng, "lng", 0, "longitude to bias results toward")
	searchCmd.Flags().IntVar(&searchPages, "pages", 1, "number of result pages to fetch")
	searchCmd.Flags().StringVar(&searchFilter, "filter", "all", "all, no-web or with-web")
	rootCmd.AddCommand(searchCmd)
}
