package services

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// GeoResolver maps a visitor address to a country code and city name.
// Used only when the edge headers carry no geo information.
type GeoResolver interface {
	Lookup(ip string) (country, city string)
	Close() error
}

// GeoIPService resolves addresses against a local MaxMind City database.
type GeoIPService struct {
	db *geoip2.Reader
}

// NewGeoIPService opens the database at path. An empty path disables
// resolution and returns a nil service, which callers must tolerate.
func NewGeoIPService(path string) (*GeoIPService, error) {
	if path == "" {
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &GeoIPService{db: db}, nil
}

func (s *GeoIPService) Lookup(ip string) (string, string) {
	if s == nil || s.db == nil {
		return "", ""
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return "", ""
	}
	record, err := s.db.City(addr)
	if err != nil {
		return "", ""
	}
	return record.Country.IsoCode, record.City.Names["en"]
}

func (s *GeoIPService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
