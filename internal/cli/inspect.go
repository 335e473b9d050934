package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(ridesCmd)

	accountsCmd.Flags().String("role", "", "only PASSENGER or CAPTAIN accounts")
	ridesCmd.Flags().String("captain", "", "only rides posted by this captain")
	ridesCmd.Flags().Bool("active", false, "hide completed rides")
}

// ─── accounts ───────────────────────────────────────────────────────────────

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List stored accounts",
	RunE:  runAccounts,
}

func runAccounts(cmd *cobra.Command, args []string) error {
	role, _ := cmd.Flags().GetString("role")

	snap, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tBALANCE\tCANCELS\tRATING\tRATINGS\tVEHICLE")
	for _, a := range snap.Accounts {
		if role != "" && !strings.EqualFold(string(a.Role), role) {
			continue
		}
		vehicle := "-"
		if a.Vehicle != nil {
			vehicle = a.Vehicle.Type + "/" + a.Vehicle.Class
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%.2f\t%d\t%s\n",
			a.Username, a.Role, a.Balance, a.CancelCount, a.AverageRating(), a.RatingCount, vehicle)
	}
	return w.Flush()
}

// ─── rides ──────────────────────────────────────────────────────────────────

var ridesCmd = &cobra.Command{
	Use:   "rides",
	Short: "List stored rides",
	RunE:  runRides,
}

func runRides(cmd *cobra.Command, args []string) error {
	captain, _ := cmd.Flags().GetString("captain")
	activeOnly, _ := cmd.Flags().GetBool("active")

	snap, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCAPTAIN\tROUTE\tDEPARTURE\tSEATS\tFARE\tSTATUS\tPASSENGERS")
	for _, r := range snap.Rides {
		if captain != "" && r.Captain != captain {
			continue
		}
		if activeOnly && r.Completed {
			continue
		}
		status := "active"
		switch {
		case r.Completed && r.Rated:
			status = "rated"
		case r.Completed:
			status = "completed"
		}
		passengers := strings.Join(r.Passengers, ",")
		if passengers == "" {
			passengers = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%.2f\t%s\t%s\n",
			r.ID, r.Captain, r.Route, r.DepartureTime, r.OccupiedSeats(), r.TotalSeats, r.Fare, status, passengers)
	}
	return w.Flush()
}
