package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/govjob-alerts/internal/app"
	"github.com/jonathan/govjob-alerts/internal/config"
	"github.com/jonathan/govjob-alerts/internal/logging"
	"github.com/jonathan/govjob-alerts/internal/navigation"
	"github.com/jonathan/govjob-alerts/internal/types"
)

const deviceCloseTimeout = 5 * time.Second

var (
	deviceConfigPath string
	bootLink         string
	pushJobID        string
	pushCategory     string
	pushTitle        string
	pushBody         string
	pushTap          bool
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Run the device alert runtime against the configured backends",
	Long: `Commands under device build the on-device runtime (preferences,
attribution, notifications, deep links and the job cache), boot it and
perform one action. Backends that are not configured fall back to logging
stand-ins.`,
}

var deviceBootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Run the startup sequence and print each step's outcome",
	RunE:  runDeviceBoot,
}

var deviceOpenLinkCmd = &cobra.Command{
	Use:   "open-link <url>",
	Short: "Route a deep link as if the running app received it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeviceOpenLink,
}

var devicePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Deliver a job alert push to the device",
	Long: `Deliver a job alert while the app is in the foreground, or with --tap
simulate the user tapping the notification.`,
	RunE: runDevicePush,
}

var deviceFollowCmd = &cobra.Command{
	Use:   "follow <category>...",
	Short: "Follow categories and subscribe to their topics",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeviceFollow,
}

func init() {
	deviceCmd.PersistentFlags().StringVarP(&deviceConfigPath, "config", "c", "", "Device config file (JSON or YAML)")

	deviceBootCmd.Flags().StringVar(&bootLink, "link", "", "Deep link that launched the app")

	devicePushCmd.Flags().StringVar(&pushJobID, "job-id", "", "Job id carried in the push data")
	devicePushCmd.Flags().StringVar(&pushCategory, "category", "", "Category carried in the push data")
	devicePushCmd.Flags().StringVar(&pushTitle, "title", "New job alert", "Notification title")
	devicePushCmd.Flags().StringVar(&pushBody, "body", "", "Notification body")
	devicePushCmd.Flags().BoolVar(&pushTap, "tap", false, "Open the notification instead of delivering it in the foreground")
	if err := devicePushCmd.MarkFlagRequired("job-id"); err != nil {
		panic(fmt.Sprintf("failed to mark job-id flag as required: %v", err))
	}

	deviceCmd.AddCommand(deviceBootCmd, deviceOpenLinkCmd, devicePushCmd, deviceFollowCmd)
	rootCmd.AddCommand(deviceCmd)
}

// loadDeviceConfig reads path, or starts from an empty config when path is
// empty, and fills defaults.
func loadDeviceConfig(path string) (config.DeviceConfig, error) {
	cfg := &config.DeviceConfig{}
	if path != "" {
		loaded, err := config.LoadDeviceConfig(path)
		if err != nil {
			return config.DeviceConfig{}, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return config.DeviceConfig{}, err
	}
	return cfg.MergeWithDefaults(), nil
}

// withDevice opens and boots a device, runs fn and closes the device.
func withDevice(ctx context.Context, initial *types.PushMessage, link string, out io.Writer, fn func(*app.Device) error) error {
	cfg, err := loadDeviceConfig(deviceConfigPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	device, err := app.Open(ctx, cfg, app.NewLogNavigator(logger), initial, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deviceCloseTimeout)
		defer cancel()
		device.Close(closeCtx)
	}()

	printSteps(out, device.Boot(ctx, link))
	if fn == nil {
		return nil
	}
	return fn(device)
}

func printSteps(out io.Writer, steps []app.StepResult) {
	for _, step := range steps {
		status := "ok"
		if step.Err != nil {
			status = "failed: " + step.Err.Error()
		}
		fmt.Fprintf(out, "%s: %s\n", step.Step, status)
	}
}

func describeRoute(route navigation.Route) string {
	switch {
	case route.Screen == "":
		return "(dropped)"
	case route.Job != nil:
		return fmt.Sprintf("%s job=%s", route.Screen, route.Job.ID)
	case route.Category != nil:
		return fmt.Sprintf("%s category=%s", route.Screen, route.Category.ID)
	default:
		return string(route.Screen)
	}
}

func runDeviceBoot(cmd *cobra.Command, _ []string) error {
	return withDevice(cmd.Context(), nil, bootLink, cmd.OutOrStdout(), nil)
}

func runDeviceOpenLink(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return withDevice(cmd.Context(), nil, "", out, func(d *app.Device) error {
		route := d.Links.Handle(cmd.Context(), args[0])
		fmt.Fprintf(out, "route: %s\n", describeRoute(route))
		return nil
	})
}

// buildJobPush builds the data-bearing push the fan-out worker would send.
func buildJobPush(jobID, category, title, body string) types.PushMessage {
	data := map[string]string{types.DataJobID: jobID}
	if category != "" {
		data[types.DataCategory] = category
	}
	return types.PushMessage{
		Notification: &types.PushNotification{Title: title, Body: body},
		Data:         data,
	}
}

func runDevicePush(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	msg := buildJobPush(pushJobID, pushCategory, pushTitle, pushBody)
	return withDevice(cmd.Context(), nil, "", out, func(d *app.Device) error {
		var handled bool
		if pushTap {
			handled = d.Push.Open(cmd.Context(), msg)
		} else {
			handled = d.Push.Deliver(cmd.Context(), msg)
		}
		if !handled {
			return fmt.Errorf("push was not handled: notifications are not initialized")
		}
		d.Notifications.Wait()
		for _, n := range d.Local.Notifications() {
			fmt.Fprintf(out, "local notification: %s | %s\n", n.Title, n.Body)
		}
		return nil
	})
}

func runDeviceFollow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return withDevice(cmd.Context(), nil, "", out, func(d *app.Device) error {
		failed := 0
		for _, o := range d.Notifications.FollowMany(cmd.Context(), args) {
			if err := o.Result.Err(); err != nil {
				failed++
				fmt.Fprintf(out, "%s: failed: %v\n", o.CategoryID, err)
				continue
			}
			fmt.Fprintf(out, "%s: subscribed to %s\n", o.CategoryID, o.Result.Value)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d categories failed", failed, len(args))
		}
		return nil
	})
}
