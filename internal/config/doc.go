// Package config loads the service configuration and the site's content model.
//
// Service configuration is layered, highest priority last:
//  1. Default values in code
//  2. base.yaml
//  3. {environment}.yaml
//  4. local.yaml (development only)
//  5. Environment variables
//
// The result is validated with struct tags before use; an invalid
// configuration fails startup.
//
// The site content model (contenttypes.yml and taxonomy.yml in
// Storage.SiteConfigDir) feeds the editor's search picker. It is held in a
// SiteStore and replaced by SiteWatcher whenever the files change.
package config
