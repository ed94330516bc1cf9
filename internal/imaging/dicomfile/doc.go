// Package dicomfile loads DICOM series directories into acquisition slices,
// tolerating the mixed value encodings real scanners emit for numeric tags.
package dicomfile
