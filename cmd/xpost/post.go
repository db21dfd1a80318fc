package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/postline/xpost/internal/api"
)

// resolveText returns the post text from --text or --text-file.
func resolveText(text, textFile string) (string, error) {
	if textFile != "" {
		raw, err := os.ReadFile(textFile)
		if err != nil {
			return "", fmt.Errorf("failed to read text file: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return text, nil
}

func printPostResult(result *api.PostResult) {
	fmt.Println("SUCCESS=Post created")
	fmt.Printf("POST_ID=%s\n", result.ID)
	fmt.Printf("URL=%s\n", result.Permalink)
}

func newPostTextCmd() *cobra.Command {
	var text, textFile, replyTo, quoteID string

	cmd := &cobra.Command{
		Use:   "post-text",
		Short: "Create a text-only post",
		RunE: func(cmd *cobra.Command, args []string) error {
			var runErr error
			err := withApp(func(client *api.Client) {
				runErr = func() error {
					body, err := resolveText(text, textFile)
					if err != nil {
						return err
					}
					result, err := client.CreatePost(cmd.Context(), &api.PostRequest{
						Text:    body,
						ReplyTo: replyTo,
						QuoteID: quoteID,
					})
					if err != nil {
						return err
					}
					printPostResult(result)
					return nil
				}()
			})
			if err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Post text content")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Path to file containing post text")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "Post id to reply to")
	cmd.Flags().StringVar(&quoteID, "quote", "", "Post id to quote")
	cmd.MarkFlagsOneRequired("text", "text-file")
	cmd.MarkFlagsMutuallyExclusive("text", "text-file")
	cmd.MarkFlagsMutuallyExclusive("reply-to", "quote")
	return cmd
}

func newPostImageCmd() *cobra.Command {
	var text, textFile string
	var images []string

	cmd := &cobra.Command{
		Use:   "post-image",
		Short: "Create a post with up to 4 images",
		RunE: func(cmd *cobra.Command, args []string) error {
			var runErr error
			err := withApp(func(client *api.Client) {
				runErr = func() error {
					body, err := resolveText(text, textFile)
					if err != nil {
						return err
					}
					result, err := client.PostWithMedia(cmd.Context(), body, images)
					if err != nil {
						return err
					}
					printPostResult(result)
					return nil
				}()
			})
			if err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Post text content")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Path to file containing post text")
	cmd.Flags().StringSliceVar(&images, "images", nil, "Paths to image files (1-4)")
	cmd.MarkFlagsOneRequired("text", "text-file")
	cmd.MarkFlagsMutuallyExclusive("text", "text-file")
	_ = cmd.MarkFlagRequired("images")
	return cmd
}

func newUploadMediaCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "upload-media",
		Short: "Upload one media file and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			var runErr error
			err := withApp(func(client *api.Client) {
				runErr = func() error {
					id, err := client.UploadMedia(cmd.Context(), file)
					if err != nil {
						return err
					}
					fmt.Printf("MEDIA_ID=%s\n", id)
					return nil
				}()
			})
			if err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to media file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
