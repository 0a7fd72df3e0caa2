package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	zetsubou "github.com/zetsubou-life/zetsubou-go"
)

// CLI flags for files subcommands
var (
	filesListParent string

	filesUploadEncrypt     bool
	filesUploadParent      string
	filesUploadConcurrency int

	filesDownloadOut string

	filesMkdirParent string

	filesMvName   string
	filesMvParent string
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage your cloud file storage",
	Long: `Manage your cloud file storage.

Files and folders live in a virtual filesystem on the server. Uploads
can be encrypted at rest; encrypted files are decrypted transparently
on download.

Examples:
  zetsubou files upload photo.jpg scan.pdf --encrypt
  zetsubou files list --parent node-abc
  zetsubou files search invoice`,
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files and folders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		nodes, err := client.VFS.ListNodes(ctx, zetsubou.ListNodesOptions{ParentID: filesListParent})
		if err != nil {
			return err
		}
		fmt.Print(formatNodesOutput(nodes, jsonOutput(cfg)))
		return nil
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload one or more files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}

		reqs := make([]zetsubou.UploadRequest, 0, len(args))
		for _, path := range args {
			file, err := zetsubou.FileFromPath(path)
			if err != nil {
				return err
			}
			reqs = append(reqs, zetsubou.UploadRequest{
				File:     file,
				ParentID: filesUploadParent,
				Encrypt:  filesUploadEncrypt,
			})
		}

		// Uploads get the parent context directly: a batch of large
		// files should not race the per-request timeout.
		nodes, err := client.VFS.UploadMany(cmd.Context(), reqs, filesUploadConcurrency)
		if err != nil {
			return err
		}

		if jsonOutput(cfg) {
			printJSON(nodes)
			return nil
		}
		for _, node := range nodes {
			marker := ""
			if node.Encrypted {
				marker = " (encrypted)"
			}
			fmt.Printf("Uploaded %s -> %s%s\n", node.Name, node.ID, marker)
		}
		return nil
	},
}

var filesDownloadCmd = &cobra.Command{
	Use:   "download <node-id>",
	Short: "Download a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}

		out := filesDownloadOut
		if out == "" {
			ctx, cancel := opContext(cmd.Context(), cfg)
			node, err := client.VFS.GetNode(ctx, args[0])
			cancel()
			if err != nil {
				return err
			}
			out = node.Name
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()

		n, err := client.VFS.Download(cmd.Context(), args[0], f)
		if err != nil {
			_ = os.Remove(out)
			return err
		}
		fmt.Printf("Wrote %s (%s)\n", out, formatBytes(n))
		return nil
	},
}

var filesMkdirCmd = &cobra.Command{
	Use:   "mkdir <name>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		folder, err := client.VFS.CreateFolder(ctx, args[0], filesMkdirParent)
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(folder)
			return nil
		}
		fmt.Printf("Created folder %s (%s)\n", folder.Name, folder.ID)
		return nil
	},
}

var filesRmCmd = &cobra.Command{
	Use:   "rm <node-id>",
	Short: "Delete a file or folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		if err := client.VFS.DeleteNode(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var filesMvCmd = &cobra.Command{
	Use:   "mv <node-id>",
	Short: "Rename or move a file or folder",
	Long: `Rename or move a file or folder.

Pass --name to rename, --parent to move, or both. Moving to the root
folder is done with --parent "".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}

		var req zetsubou.UpdateNodeRequest
		if cmd.Flags().Changed("name") {
			req.Name = &filesMvName
		}
		if cmd.Flags().Changed("parent") {
			req.ParentID = &filesMvParent
		}
		if req.Name == nil && req.ParentID == nil {
			return fmt.Errorf("nothing to do: pass --name and/or --parent")
		}

		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		node, err := client.VFS.UpdateNode(ctx, args[0], req)
		if err != nil {
			return err
		}
		if jsonOutput(cfg) {
			printJSON(node)
			return nil
		}
		fmt.Printf("Updated %s (%s)\n", node.Name, node.ID)
		return nil
	},
}

var filesSearchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Find files by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := opContext(cmd.Context(), cfg)
		defer cancel()

		nodes, err := client.VFS.SearchFiles(ctx, zetsubou.SearchOptions{NamePattern: args[0]})
		if err != nil {
			return err
		}
		fmt.Print(formatNodesOutput(nodes, jsonOutput(cfg)))
		return nil
	},
}

func init() {
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesUploadCmd)
	filesCmd.AddCommand(filesDownloadCmd)
	filesCmd.AddCommand(filesMkdirCmd)
	filesCmd.AddCommand(filesRmCmd)
	filesCmd.AddCommand(filesMvCmd)
	filesCmd.AddCommand(filesSearchCmd)

	filesListCmd.Flags().StringVar(&filesListParent, "parent", "", "List inside this folder (root when empty)")

	filesUploadCmd.Flags().BoolVar(&filesUploadEncrypt, "encrypt", false, "Encrypt files at rest")
	filesUploadCmd.Flags().StringVar(&filesUploadParent, "parent", "", "Destination folder id")
	filesUploadCmd.Flags().IntVar(&filesUploadConcurrency, "concurrency", 0, "Parallel uploads (default 3)")

	filesDownloadCmd.Flags().StringVarP(&filesDownloadOut, "output", "o", "", "Output path (default the file's name)")

	filesMkdirCmd.Flags().StringVar(&filesMkdirParent, "parent", "", "Parent folder id")

	filesMvCmd.Flags().StringVar(&filesMvName, "name", "", "New name")
	filesMvCmd.Flags().StringVar(&filesMvParent, "parent", "", "New parent folder id")
}

// formatNodesOutput formats a node listing for display.
func formatNodesOutput(nodes []zetsubou.VFSNode, asJSON bool) string {
	if asJSON {
		return marshalJSONOrFallback(nodes)
	}

	if len(nodes) == 0 {
		return "No files\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("FILES: %d\n\n", len(nodes)))
	for _, node := range nodes {
		size := "-"
		if node.Type == "file" {
			size = formatBytes(node.SizeBytes)
		}
		marker := ""
		if node.Encrypted {
			marker = " [encrypted]"
		}
		if node.Type == "folder" {
			marker = "/"
		}
		sb.WriteString(fmt.Sprintf("  %s  %s%s (%s) — %s\n",
			node.ID, node.Name, marker, size, formatTimeAgo(node.UpdatedAt)))
	}
	return sb.String()
}
