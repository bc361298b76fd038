package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/notification"
)

// Command returns a cobra command that sends a test notification through
// the configured push services.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		typ       string
		title     string
		message   string
		component string
		timeout   time.Duration
		metadata  []string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test push notification",
		Long: `Send a test notification through every configured notify URL.

Examples:
  # Basic notification
  streampuffer notify --title="Test" --message="Hello"

  # Error notification with metadata
  streampuffer notify --type=error --metadata="kind=window" --metadata="duration_ms=10000"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ntype, err := parseType(typ)
			if err != nil {
				return err
			}
			meta, err := parseMetadata(metadata)
			if err != nil {
				return err
			}
			if !settings.Notify.Enabled || len(settings.Notify.URLs) == 0 {
				return fmt.Errorf("no notification URLs configured (notify.enabled and notify.urls)")
			}

			service, err := notification.NewServiceFromSettings(&settings.Notify)
			if err != nil {
				return fmt.Errorf("failed to create notification service: %w", err)
			}
			defer service.Close()

			n := notification.NewNotification(ntype, title, message).WithComponent(component)
			for k, v := range meta {
				n.WithMetadata(k, v)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := service.Notify(ctx, n); err != nil {
				return fmt.Errorf("failed to send notification: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Notification sent: id=%s type=%s providers=%d", n.ID, n.Type, service.Providers())
			if len(n.Metadata) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " metadata=%d_keys", len(n.Metadata))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", "system", "Notification type: recording|error|system")
	cmd.Flags().StringVar(&title, "title", "Test Notification", "Notification title")
	cmd.Flags().StringVar(&message, "message", "This is a test push notification", "Notification message")
	cmd.Flags().StringVar(&component, "component", "cli", "Notification component tag")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Time to wait for delivery")
	cmd.Flags().StringSliceVar(&metadata, "metadata", nil, "Metadata key-value pairs in format key=value (supports numbers, booleans, and strings)")

	return cmd
}

func parseType(s string) (notification.Type, error) {
	switch s {
	case "recording":
		return notification.TypeRecording, nil
	case "error":
		return notification.TypeError, nil
	case "system":
		return notification.TypeSystem, nil
	default:
		return "", fmt.Errorf("invalid type: %s", s)
	}
}

// parseMetadata reads key=value pairs. Values are numbers, booleans or
// strings, in that order of preference.
func parseMetadata(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid metadata format: %s (expected key=value)", kv)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		if f, err := strconv.ParseFloat(value, 64); err == nil {
			out[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			out[key] = b
		} else {
			out[key] = value
		}
	}
	return out, nil
}
