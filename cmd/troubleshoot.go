package main

import (
	"context"

	"intent-orchestrator/internal/logger"
	"intent-orchestrator/internal/usecase/troubleshoot"

	"github.com/spf13/cobra"
)

var (
	tsCriteria   string
	tsStreamID   string
	tsDeviceUUID string
	tsLimit      int
)

var troubleshootCmd = &cobra.Command{
	Use:       "troubleshoot <operation>",
	Short:     "Run a device troubleshooting operation and print the JSON result",
	Example:   "  intent-orchestrator troubleshoot troubleshoot_device --criteria Paradise\n  intent-orchestrator troubleshoot check_all_devices --limit 20",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{troubleshoot.OpTroubleshootDevice, troubleshoot.OpCheckAllDevices, troubleshoot.OpCheckDeviceEvents},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer a.Close()

		params := map[string]any{}
		setIf := func(key, value string) {
			if value != "" {
				params[key] = value
			}
		}
		setIf("device_criteria", tsCriteria)
		setIf("stream_id", tsStreamID)
		setIf("device_uuid", tsDeviceUUID)
		if tsLimit > 0 {
			params["limit"] = tsLimit
		}

		result, err := a.Troubleshoot.Process(ctx, args[0], params)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	f := troubleshootCmd.Flags()
	f.StringVar(&tsCriteria, "criteria", "", "device name or search term")
	f.StringVar(&tsStreamID, "stream-id", "", "stream id (defaults to DEFAULT_STREAM_ID)")
	f.StringVar(&tsDeviceUUID, "device-uuid", "", "telemetry id for check_device_events")
	f.IntVar(&tsLimit, "limit", 0, "maximum devices for check_all_devices")
}
