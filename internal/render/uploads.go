package render

import (
	"fmt"
	"strings"

	"github.com/hhftechnology/wordpress-docker/internal/config"
)

// UploadsConfig renders the PHP ini fragment carrying the upload policy.
func UploadsConfig(policy config.UploadPolicy) string {
	var b strings.Builder
	b.WriteString("file_uploads = On\n")
	b.WriteString("memory_limit = " + policy.MemoryLimit.String() + "\n")
	b.WriteString("upload_max_filesize = " + policy.MaxFileSize.String() + "\n")
	b.WriteString("post_max_size = " + policy.MaxPostSize.String() + "\n")
	fmt.Fprintf(&b, "max_execution_time = %d\n", int(policy.MaxExecution.Seconds()))
	return b.String()
}
