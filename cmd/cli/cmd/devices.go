package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Inspect devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices known locally or, with --vendor, to the developer account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		vendor, _ := cmd.Flags().GetBool("vendor")

		client, err := newAdminClient()
		if err != nil {
			return err
		}

		if vendor {
			return listVendorDevices(cmd, client)
		}

		devices, err := client.ListDevices()
		if err != nil {
			return err
		}
		if done, err := render(cmd, devices); done || err != nil {
			return err
		}
		if len(devices) == 0 {
			cmd.Println("No devices.")
			return nil
		}

		w := newTable(cmd.OutOrStdout())
		fmt.Fprintln(w, "UDID\tPRODUCT\tOS\tCREATED")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.UDID, orDash(d.Product), orDash(d.OSVersion), formatTime(d.CreatedAt))
		}
		return w.Flush()
	},
}

func listVendorDevices(cmd *cobra.Command, client *Client) error {
	devices, err := client.VendorDevices()
	if err != nil {
		return err
	}
	if done, err := render(cmd, devices); done || err != nil {
		return err
	}
	if len(devices) == 0 {
		cmd.Println("No devices registered with the vendor.")
		return nil
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tNAME\tUDID\tMODEL\tSTATUS\tADDED")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.UDID, orDash(d.Model), d.Status, orDash(d.AddedDate))
	}
	return w.Flush()
}

func init() {
	devicesListCmd.Flags().Bool("vendor", false, "List devices registered with the vendor developer account")
	devicesCmd.AddCommand(devicesListCmd)
	rootCmd.AddCommand(devicesCmd)
}
