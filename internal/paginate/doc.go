// Package paginate turns one tall bitmap into a multi-page PDF.
//
// The work is split in two: Plan is pure integer arithmetic over bitmap
// heights (which page shows which pixel rows), and Assemble draws the
// planned pages with go-pdf/fpdf. Page numbers are stamped in a second pass
// over the finished pages because the total is only known after slicing.
package paginate
