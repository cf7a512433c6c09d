// Package platform opens source files for archiving without leaving the
// source root or following symbolic links on any operating system.
package platform
