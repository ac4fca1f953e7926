// Package confloader provides configuration loading mechanism.
//
// Configuration sources, later sources overriding earlier ones:
//
//  1. Struct defaults supplied by the caller
//  2. YAML configuration file
//  3. Environment variables with the BOARDMESH_ prefix
//
// The package also provides a file watcher built on fsnotify for
// reacting to configuration changes at runtime, such as adjusting the
// log level without a restart. The watcher observes the file's parent
// directory so that atomic-rename editors (vim, sed -i) still produce
// events for the watched file.
package confloader
