package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rueda-la-rola/leadgen/internal/generator"
	"github.com/rueda-la-rola/leadgen/internal/model"
)

var (
	genName    string
	genAddress string
	genWebsite string
	genType    string
	genPlaceID string
	genOut     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a demo site or proposal flyer for a business",
	RunE: func(cmd *cobra.Command, args []string) error {
		if genName == "" {
			return eris.New("--name is required")
		}
		// Businesses that already have a site get a proposal by default,
		// the rest get a demo site.
		if !cmd.Flags().Changed("type") && genWebsite != "" && !model.IsSocialMedia(genWebsite) {
			genType = string(model.AssetProposal)
		}
		assetType, err := model.ParseAssetType(genType)
		if err != nil {
			return eris.New("--type must be demo or proposal")
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		gen, err := initGenerator(st)
		if err != nil {
			return err
		}

		var website *string
		if genWebsite != "" {
			website = &genWebsite
		}

		asset, err := gen.Generate(cmd.Context(), generator.Request{
			PlaceID:      genPlaceID,
			PlaceName:    genName,
			PlaceAddress: genAddress,
			Type:         assetType,
			Website:      website,
		})
		if err != nil {
			return eris.Wrap(err, "generate")
		}

		if genOut != "" {
			if err := os.WriteFile(genOut, []byte(asset.Content), 0o644); err != nil {
				return eris.Wrap(err, "write output file")
			}
			zap.L().Info("asset written", zap.String("path", genOut))
		}

		fmt.Printf("generated %s asset %s for %s\n", asset.Type, asset.ID, asset.PlaceName)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genName, "name", "", "business name")
	generateCmd.Flags().StringVar(&genAddress, "address", "", "business address")
	generateCmd.Flags().StringVar(&genWebsite, "website", "", "current website, if any")
	generateCmd.Flags().StringVar(&genType, "type", "demo", "asset type: demo or proposal")
	generateCmd.Flags().StringVar(&genPlaceID, "place-id", "", "directory place id (derived from name when omitted)")
	generateCmd.Flags().StringVar(&genOut, "out", "", "write the generated HTML to this file")
	rootCmd.AddCommand(generateCmd)
}
