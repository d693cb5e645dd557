// Package config provides configuration parsing for the catalog server.
//
// Configuration is read from catalog.json (or catalog.yaml / catalog.yml)
// in the working directory. Every field has a default, so a missing file is
// not an error. A handful of environment variables override the file:
//
//	API_BASE_URL  product API root (api.baseURL)
//	PORT          listen port (server.port)
//	LOG_LEVEL     debug, info, warn or error (log.level)
//
// # Configuration File Structure
//
//	{
//	  "server": {"host": "0.0.0.0", "port": 3000, "baseRoute": "/products"},
//	  "api": {"baseURL": "https://fakestoreapi.com", "timeout": "10s"},
//	  "cache": {"catalog": "1h", "product": "24h", "categories": "24h"},
//	  "search": {"queryKey": "search", "debounce": "400ms", "maxLength": 100},
//	  "live": {"enabled": true, "maxSessions": 1000},
//	  "log": {"level": "info", "format": "json"}
//	}
//
// Durations are Go duration strings.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Port:", cfg.Server.Port)
package config
