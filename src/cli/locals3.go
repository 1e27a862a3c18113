package cli

import (
	"io/fs"
	"net/http"
	"os"

	"github.com/cdil-bc/canvas-discussions/src/locals3"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/spf13/cobra"
)

func init() {
	s3Command := &cobra.Command{
		Use:   "locals3 [storage folder]",
		Short: "Run a local S3 server that stores in the filesystem",
		Long: `Serves just enough of S3 for "export --s3" to upload to. Point
EXPORT_S3_ENDPOINT at it (e.g. http://localhost:9000) and set any
EXPORT_S3_BUCKET, EXPORT_S3_KEY, and EXPORT_S3_SECRET.`,
		Run: func(cmd *cobra.Command, args []string) {
			targetFolder := "./tmp/s3"
			if len(args) > 0 {
				targetFolder = args[0]
			}
			exitOnError(os.MkdirAll(targetFolder, fs.ModePerm), "Failed to create storage folder")

			addr, _ := cmd.Flags().GetString("addr")
			logging.Info().Str("addr", addr).Str("folder", targetFolder).Msg("Serving local S3")
			exitOnError(http.ListenAndServe(addr, locals3.Handler(targetFolder)), "Local S3 server stopped")
		},
	}
	s3Command.Flags().String("addr", "localhost:9000", "address to listen on")
	RootCommand.AddCommand(s3Command)
}
