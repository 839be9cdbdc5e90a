package main

import (
	"fmt"
	"strings"

	"fraud-forest/internal/publish"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type publishCmdConfig struct {
	*rootCmdConfig
	artifact string
	key      string
	baseURL  string
}

func publishCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &publishCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload a forest artifact to the key-value store",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.settings
			if cmd.Flags().Changed("base-url") {
				settings.Publish.BaseURL = config.baseURL
			}
			artifact := settings.ArtifactOutput
			if cmd.Flags().Changed("artifact") {
				artifact = config.artifact
			}
			if strings.TrimSpace(config.key) == "" {
				return fmt.Errorf("required key flag was not set")
			}

			sess, err := newSession(&settings)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := signalContext()
			defer cancel()

			client := publish.NewClient(settings.Publish, settings.ArtifactLimitBytes())
			res, err := client.PublishArtifact(ctx, config.key, artifact)
			sess.recorder.Published(err)
			if err != nil {
				return err
			}
			log.Info().
				Str("key", res.Key).
				Str("url", res.URL).
				Int("bytes", res.Bytes).
				Str("sha256", res.Digest).
				Int("status", res.Status).
				Msg("Artifact published")
			return nil
		},
	}
	cmd.Flags().StringVarP(&config.artifact, "artifact", "a", "", "artifact path (defaults to ARTIFACT_OUTPUT)")
	cmd.Flags().StringVarP(&config.key, "key", "k", "", "destination key")
	cmd.Flags().StringVar(&config.baseURL, "base-url", "", "key-value store base URL (overrides PUBLISH_BASE_URL)")
	return cmd
}
