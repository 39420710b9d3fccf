// =============================================================================
// SDSVG Book - Main Entry Point
// =============================================================================
//
// USAGE:
//   sdsvg-book serve          - Run the upload page
//   sdsvg-book import <file>  - Replace the member book from a file
//   sdsvg-book list           - Print the stored member book
//   sdsvg-book export         - Write the stored book as XML
//   sdsvg-book sample         - Write the sample workbook
//   sdsvg-book version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Import pipeline, storage, HTTP front end
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/sdsvg/sdsvg-book/cmd"
)

func main() {
	cmd.Execute()
}
