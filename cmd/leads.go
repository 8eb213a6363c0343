package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rueda-la-rola/leadgen/internal/model"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List tracked leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		leads, err := st.ListLeads(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "list leads")
		}

		rows := make([][]string, 0, len(leads))
		for _, l := range leads {
			phone := "-"
			if l.Phone != nil {
				phone = *l.Phone
			}
			rows = append(rows, []string{
				l.Name,
				string(l.Status),
				l.Address,
				phone,
				l.UpdatedAt.Format("2006-01-02 15:04"),
				l.PlaceID,
			})
		}

		fmt.Println(renderTable(
			[]string{"Name", "Status", "Address", "Phone", "Updated", "Place ID"},
			rows,
		))
		return nil
	},
}

var leadsSetCmd = &cobra.Command{
	Use:   "set <place-id> <status>",
	Short: "Move a lead to a new pipeline status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		placeID := args[0]
		status, err := model.ParseLeadStatus(args[1])
		if err != nil {
			return eris.Errorf("unknown status %q (new, contacted, sold, rejected)", args[1])
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		b, err := initBoard(cmd.Context(), st)
		if err != nil {
			return err
		}

		lead, err := b.SetStatus(cmd.Context(), placeID, status)
		if err != nil {
			return eris.Wrapf(err, "set status for %s", placeID)
		}

		fmt.Printf("%s is now %s\n", lead.Name, lead.Status)
		return nil
	},
}

func init() {
	leadsCmd.AddCommand(leadsSetCmd)
	rootCmd.AddCommand(leadsCmd)
}
