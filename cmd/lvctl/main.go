package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/livva-hq/settlement/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL  string
	cfgFile    string
	authToken  string
	jsonOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lvctl",
	Short: "Trust & settlement engine CLI",
	Long: `lvctl is the command-line interface for the trust & settlement engine.

It talks to a running settlementd server: look up trust profiles, apply
penalties, open and release deposits, manage verification evidence, and
rank listings for a tenant.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.lvctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if authToken == "" {
			authToken = viper.GetString("auth_token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.lvctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "settlementd base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token for authenticated endpoints")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of tables")

	rootCmd.AddCommand(trustCmd)
	rootCmd.AddCommand(penaltyCmd)
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	opts := []client.Option{}
	if authToken != "" {
		opts = append(opts, client.WithBearerToken(authToken))
	}
	return client.New(serverURL, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── trust ────────────────────────────────────────────────────────────────────

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Trust profiles and events",
}

var trustShowCmd = &cobra.Command{
	Use:   "show <email>",
	Short: "Show a trust profile (created at the default score if missing)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		profile, err := c.TrustProfile(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(profile)
		}

		fmt.Printf("Email:    %s\n", profile.Email)
		fmt.Printf("Score:    %d\n", profile.Score)
		fmt.Printf("Verified: identity=%t phone=%t email=%t\n",
			profile.VerifiedIdentity, profile.VerifiedPhone, profile.VerifiedEmail)
		if len(profile.Events) > 0 {
			fmt.Println("\nEvents:")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  TYPE\tDELTA\tREASON\tAT")
			for _, ev := range profile.Events {
				fmt.Fprintf(w, "  %s\t%+d\t%s\t%s\n",
					ev.Type, ev.Delta, ev.Reason, ev.Timestamp.Format(time.RFC3339))
			}
			w.Flush() //nolint:errcheck
		}
		return nil
	},
}

var trustEventReason string

var trustEventCmd = &cobra.Command{
	Use:   "event <email> <event-type>",
	Short: "Record a trust event (e.g. VERIFIED_IDENTITY, LATE_CANCEL)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		profile, err := c.RecordTrustEvent(context.Background(), args[0], args[1], trustEventReason)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(profile)
		}
		fmt.Printf("recorded %s for %s — score now %d\n", args[1], profile.Email, profile.Score)
		return nil
	},
}

var trustMultiplierCmd = &cobra.Command{
	Use:   "multiplier <email>",
	Short: "Show the trust-derived deposit multiplier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		m, err := c.DepositMultiplier(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(m)
		}
		fmt.Printf("%s: score %d → deposit multiplier %.1fx\n", m.Email, m.Score, m.Multiplier)
		return nil
	},
}

func init() {
	trustEventCmd.Flags().StringVar(&trustEventReason, "reason", "", "human-readable reason for the event")
	trustCmd.AddCommand(trustShowCmd)
	trustCmd.AddCommand(trustEventCmd)
	trustCmd.AddCommand(trustMultiplierCmd)
}

// ── penalty ──────────────────────────────────────────────────────────────────

var penaltyCmd = &cobra.Command{
	Use:   "penalty",
	Short: "Behavioral penalties",
}

var (
	penaltyFrom   string
	penaltyTo     string
	penaltyReason string
	penaltyAmount float64
)

var penaltyApplyCmd = &cobra.Command{
	Use:   "apply <event-type>",
	Short: "Apply a penalty (e.g. TENANT_NO_SHOW, LANDLORD_GHOST)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ev, err := c.ApplyPenalty(context.Background(), client.ApplyPenaltyRequest{
			EventType: args[0],
			FromEmail: penaltyFrom,
			ToEmail:   penaltyTo,
			Reason:    penaltyReason,
			Amount:    penaltyAmount,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(ev)
		}
		fmt.Printf("penalty %s: %s %.0f %s from %s to %s (%s)\n",
			ev.ID, ev.EventType, ev.Amount, ev.Currency, ev.FromEmail, ev.ToEmail, ev.Status)
		return nil
	},
}

var penaltyListEmail string

var penaltyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List penalty events, optionally filtered by identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		events, err := c.Penalties(context.Background(), penaltyListEmail)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(events)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tFROM\tTO\tAMOUNT\tSTATUS")
		for _, ev := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f %s\t%s\n",
				ev.ID, ev.EventType, ev.FromEmail, ev.ToEmail, ev.Amount, ev.Currency, ev.Status)
		}
		return w.Flush()
	},
}

func init() {
	penaltyApplyCmd.Flags().StringVar(&penaltyFrom, "from", "", "violator email (required)")
	penaltyApplyCmd.Flags().StringVar(&penaltyTo, "to", "", "beneficiary email (required)")
	penaltyApplyCmd.Flags().StringVar(&penaltyReason, "reason", "", "human-readable reason")
	penaltyApplyCmd.Flags().Float64Var(&penaltyAmount, "amount", 0, "override amount (0 = default for the event type)")
	penaltyApplyCmd.MarkFlagRequired("from") //nolint:errcheck
	penaltyApplyCmd.MarkFlagRequired("to")   //nolint:errcheck
	penaltyListCmd.Flags().StringVar(&penaltyListEmail, "email", "", "filter by identity (either party)")
	penaltyCmd.AddCommand(penaltyApplyCmd)
	penaltyCmd.AddCommand(penaltyListCmd)
}

// ── deposit ──────────────────────────────────────────────────────────────────

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Escrow deposits",
}

var (
	depositListing  string
	depositTenant   string
	depositLandlord string
	depositAmount   float64
	depositChannel  string
)

var depositCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a trust-adjusted escrow deposit",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.CreateDeposit(context.Background(), client.CreateDepositRequest{
			ListingID:        depositListing,
			TenantEmail:      depositTenant,
			LandlordEmail:    depositLandlord,
			BaseAmount:       depositAmount,
			PreferredChannel: depositChannel,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		fmt.Printf("escrow %s: %.0f %s via %s (%s)\n",
			res.Escrow.ID, res.Escrow.Amount, res.Escrow.Currency, res.Escrow.Channel, res.Escrow.Status)
		fmt.Printf("checkout: %s\n", res.PaymentURL)
		return nil
	},
}

var depositReleaseCmd = &cobra.Command{
	Use:   "release <escrow-id>",
	Short: "Release an escrow per its verification decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.ReleaseDeposit(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		fmt.Printf("escrow %s → %s\n", res.Escrow.ID, res.Escrow.Status)
		if res.Decision != nil {
			fmt.Printf("decision: %s (confidence %.2f) — %s\n",
				res.Decision.Decision, res.Decision.Confidence, res.Decision.Reason)
		}
		return nil
	},
}

var depositFundCmd = &cobra.Command{
	Use:   "fund <escrow-id>",
	Short: "Mark a pending escrow as funded (payment confirmed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		escrow, err := c.FundDeposit(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(escrow)
		}
		fmt.Printf("escrow %s → %s\n", escrow.ID, escrow.Status)
		return nil
	},
}

var depositListTenant string

var depositListCmd = &cobra.Command{
	Use:   "list",
	Short: "List escrows, optionally for one tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		escrows, err := c.Deposits(context.Background(), depositListTenant)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(escrows)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLISTING\tTENANT\tAMOUNT\tCHANNEL\tSTATUS")
		for _, e := range escrows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f %s\t%s\t%s\n",
				e.ID, e.ListingID, e.TenantEmail, e.Amount, e.Currency, e.Channel, e.Status)
		}
		return w.Flush()
	},
}

func init() {
	depositCreateCmd.Flags().StringVar(&depositListing, "listing", "", "listing id (required)")
	depositCreateCmd.Flags().StringVar(&depositTenant, "tenant", "", "tenant email (required)")
	depositCreateCmd.Flags().StringVar(&depositLandlord, "landlord", "", "landlord email")
	depositCreateCmd.Flags().Float64Var(&depositAmount, "amount", 0, "base deposit amount before trust adjustment (required)")
	depositCreateCmd.Flags().StringVar(&depositChannel, "channel", "", "preferred payment channel (locus or stripe)")
	depositCreateCmd.MarkFlagRequired("listing") //nolint:errcheck
	depositCreateCmd.MarkFlagRequired("tenant")  //nolint:errcheck
	depositCreateCmd.MarkFlagRequired("amount")  //nolint:errcheck
	depositListCmd.Flags().StringVar(&depositListTenant, "tenant", "", "filter by tenant email")
	depositCmd.AddCommand(depositCreateCmd)
	depositCmd.AddCommand(depositReleaseCmd)
	depositCmd.AddCommand(depositFundCmd)
	depositCmd.AddCommand(depositListCmd)
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Move-in verification cases",
}

var verifyShowCmd = &cobra.Command{
	Use:   "show <escrow-id>",
	Short: "Show the verification case for an escrow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		vc, err := c.VerificationCase(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(vc)
		}
		fmt.Printf("Escrow:   %s (listing %s)\n", vc.EscrowID, vc.ListingID)
		fmt.Printf("Status:   %s  disputed=%t\n", vc.Status, vc.HasDispute)
		fmt.Printf("Evidence: tenant=%d landlord=%d\n", len(vc.TenantUploads), len(vc.LandlordUploads))
		if vc.Decision != nil {
			fmt.Printf("Decision: %s (confidence %.2f) — %s\n",
				vc.Decision.Decision, vc.Decision.Confidence, vc.Decision.Reason)
		}
		return nil
	},
}

var (
	uploadType string
	uploadBy   string
	uploadURL  string
)

var verifyUploadCmd = &cobra.Command{
	Use:   "upload <escrow-id>",
	Short: "Attach move-in evidence to a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		vc, err := c.AddUpload(context.Background(), args[0], uploadType, uploadBy, uploadURL)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(vc)
		}
		fmt.Printf("uploaded %s evidence by %s — tenant=%d landlord=%d\n",
			uploadType, uploadBy, len(vc.TenantUploads), len(vc.LandlordUploads))
		return nil
	},
}

var verifyDisputeCmd = &cobra.Command{
	Use:   "dispute <escrow-id>",
	Short: "Flag the case as disputed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		vc, err := c.FlagDispute(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(vc)
		}
		fmt.Printf("escrow %s flagged as disputed\n", vc.EscrowID)
		return nil
	},
}

func init() {
	verifyUploadCmd.Flags().StringVar(&uploadType, "type", "photo", "evidence type: photo, document, or meter_reading")
	verifyUploadCmd.Flags().StringVar(&uploadBy, "by", "tenant", "submitting party: tenant or landlord")
	verifyUploadCmd.Flags().StringVar(&uploadURL, "url", "", "URL of the uploaded evidence")
	verifyCmd.AddCommand(verifyShowCmd)
	verifyCmd.AddCommand(verifyUploadCmd)
	verifyCmd.AddCommand(verifyDisputeCmd)
}

// ── match ────────────────────────────────────────────────────────────────────

var matchFile string

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank listings for a tenant",
	Long: `Match reads a JSON file with the shape

  {"tenant": {...}, "listings": [...]}

and prints the listings ranked best-first with the scoring reasons.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(matchFile)
		if err != nil {
			return err
		}
		var req struct {
			Tenant   client.TenantSearch `json:"tenant"`
			Listings []client.Listing    `json:"listings"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parse %s: %w", matchFile, err)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		results, err := c.Match(context.Background(), req.Tenant, req.Listings)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(results)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tLISTING\tSCORE\tREASONS")
		for i, r := range results {
			reasons := ""
			for j, reason := range r.Reasons {
				if j > 0 {
					reasons += "; "
				}
				reasons += reason
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", strconv.Itoa(i+1), r.Listing.ID, r.Score, reasons)
		}
		return w.Flush()
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchFile, "file", "match.json", "JSON file with tenant and listings")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lvctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lvctl", version)
	},
}
