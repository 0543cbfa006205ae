package main

import (
	"encoding/json"
	"fmt"
	"os"

	"threadview/internal/queryservice"

	"github.com/spf13/cobra"
)

// SettingsOptions are shared by the settings subcommands.
type SettingsOptions struct {
	SiteURL string
	Token   string
	PageID  string
}

func (o *SettingsOptions) target() queryservice.SettingsTarget {
	if o.PageID != "" {
		return queryservice.SettingsTarget{Kind: queryservice.PageTree, PageID: o.PageID}
	}
	return queryservice.SettingsTarget{Kind: queryservice.WholeSite}
}

func (o *SettingsOptions) client(root *RootOptions, cmd *cobra.Command) (*queryservice.Client, error) {
	if o.SiteURL == "" {
		return nil, fmt.Errorf("--site-url or SITE_URL is required")
	}
	client := queryservice.NewClient(o.SiteURL, newLogger(cmd.ErrOrStderr(), root.Debug))
	client.Token = o.Token
	return client, nil
}

// NewSettingsCommand groups the site settings and special content commands.
func NewSettingsCommand(root *RootOptions) *cobra.Command {
	opts := &SettingsOptions{}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change site settings and special content",
	}
	cmd.PersistentFlags().StringVar(&opts.SiteURL, "site-url", os.Getenv("SITE_URL"), "settings service origin")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("SETTINGS_TOKEN"), "bearer token for the settings service")
	cmd.PersistentFlags().StringVar(&opts.PageID, "page", "", "page tree to target instead of the whole site")

	cmd.AddCommand(newSettingsLoadCommand(root, opts))
	cmd.AddCommand(newSettingsSaveCommand(root, opts))
	cmd.AddCommand(newContentLoadCommand(root, opts))
	cmd.AddCommand(newContentSaveCommand(root, opts))
	return cmd
}

func newSettingsLoadCommand(root *RootOptions, opts *SettingsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Print every setting for the site or a page tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(root, cmd)
			if err != nil {
				return err
			}
			settings, err := client.LoadSettings(cmd.Context(), opts.target())
			if err != nil {
				return err
			}
			return writeJSON(cmd, settings)
		},
	}
}

func newSettingsSaveCommand(root *RootOptions, opts *SettingsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME VALUE",
		Short: "Save one setting; VALUE is JSON, or a plain string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(root, cmd)
			if err != nil {
				return err
			}
			return client.SaveSetting(cmd.Context(), queryservice.Setting{
				Target:   opts.target(),
				Name:     args[0],
				NewValue: parseValue(args[1]),
			})
		},
	}
}

func newContentLoadCommand(root *RootOptions, opts *SettingsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "content CONTENT_ID",
		Short: "Print a special content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(root, cmd)
			if err != nil {
				return err
			}
			content, err := client.LoadSpecialContent(cmd.Context(), opts.PageID, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, content)
		},
	}
}

func newContentSaveCommand(root *RootOptions, opts *SettingsOptions) *cobra.Command {
	var defaultText string
	cmd := &cobra.Command{
		Use:   "save-content CONTENT_ID TEXT",
		Short: "Replace the text of a special content item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(root, cmd)
			if err != nil {
				return err
			}
			text := args[1]
			return client.SaveSpecialContent(cmd.Context(), queryservice.SpecialContent{
				RootPageID:    opts.PageID,
				ContentID:     args[0],
				DefaultText:   defaultText,
				AnyCustomText: &text,
			})
		},
	}
	cmd.Flags().StringVar(&defaultText, "default-text", "", "default text sent along with the custom text")
	return cmd
}

// parseValue reads a JSON literal, falling back to the raw string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
