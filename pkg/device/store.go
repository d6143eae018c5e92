package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/liscain-net/liscain/pkg/util"
)

// Store is the single source of truth for Device and
// Option82Association rows. Every operation runs in its own short
// transaction; the store never caches, so two successive reads may
// observe different state when another worker committed in between.
// Callers must tolerate that.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the device store. spec is an SQLite file
// path; ":memory:" gives a private in-memory store for tests.
func Open(spec string) (*Store, error) {
	dsn := spec
	if spec != ":memory:" {
		// WAL so queue workers and the RPC path can read while a
		// transaction commits; busy_timeout instead of immediate
		// SQLITE_BUSY under contention.
		dsn = spec + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening device store: %w", err)
	}
	if err := db.AutoMigrate(&Device{}, &Option82Association{}); err != nil {
		return nil, fmt.Errorf("migrating device store: %w", err)
	}
	return &Store{db: db}, nil
}

// notFound converts gorm's sentinel into the controller's taxonomy.
func notFound(err error, kind, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.NewNotFoundError(kind, key)
	}
	return fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
}

// GetByID fetches one device.
func (s *Store) GetByID(id int64) (*Device, error) {
	var dev Device
	if err := s.db.First(&dev, id).Error; err != nil {
		return nil, notFound(err, "device", fmt.Sprint(id))
	}
	return &dev, nil
}

// FindByIdentifierNotInState fetches the device with the given
// identifier, skipping rows in the excluded state. The bootstrap path
// uses this to treat post-CONFIGURED re-requests as fresh devices.
func (s *Store) FindByIdentifierNotInState(identifier string, excluded State) (*Device, error) {
	var dev Device
	err := s.db.Where("identifier = ? AND state <> ?", identifier, excluded).First(&dev).Error
	if err != nil {
		return nil, notFound(err, "device", identifier)
	}
	return &dev, nil
}

// ListAll returns every device row.
func (s *Store) ListAll() ([]Device, error) {
	var devs []Device
	if err := s.db.Order("id").Find(&devs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
	}
	return devs, nil
}

// Create persists a new device row and backfills its id.
func (s *Store) Create(dev *Device) error {
	if err := s.db.Create(dev).Error; err != nil {
		return fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
	}
	util.WithDevice(dev.Identifier).Info("initialized switch information")
	return nil
}

// Delete removes a device row.
func (s *Store) Delete(id int64) error {
	res := s.db.Delete(&Device{}, id)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", util.ErrStoreFailure, res.Error)
	}
	if res.RowsAffected == 0 {
		return util.NewNotFoundError("device", fmt.Sprint(id))
	}
	return nil
}

// Save upserts the device row (merge semantics).
func (s *Store) Save(dev *Device) error {
	if err := s.db.Save(dev).Error; err != nil {
		return fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
	}
	return nil
}

// ChangeState persists a lifecycle transition. Only tasks and adopters
// call this; the commander never moves a device's state.
func (s *Store) ChangeState(dev *Device, next State) error {
	util.WithDevice(dev.Identifier).Infof("change state %s -> %s", dev.State, next)
	dev.State = next
	return s.Save(dev)
}

// ----------------------------------------------------------------------------
// Option-82 associations
// ----------------------------------------------------------------------------

// SetAssociation binds a downstream switch name to an upstream port,
// creating the row if needed. MAC and port strings are normalized to
// lower case.
func (s *Store) SetAssociation(upstreamMAC, upstreamPort, downstreamName string) (*Option82Association, error) {
	upstreamMAC = strings.ToLower(upstreamMAC)
	upstreamPort = strings.ToLower(upstreamPort)

	var assoc Option82Association
	err := s.db.Where(
		"upstream_switch_mac = ? AND upstream_port_info = ?", upstreamMAC, upstreamPort,
	).First(&assoc).Error
	switch {
	case err == nil:
		assoc.DownstreamSwitchName = &downstreamName
		if err := s.db.Save(&assoc).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		assoc = Option82Association{
			UpstreamSwitchMAC:    upstreamMAC,
			UpstreamPortInfo:     upstreamPort,
			DownstreamSwitchName: &downstreamName,
		}
		if err := s.db.Create(&assoc).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
	}

	util.WithComponent("option82").Infof(
		"association set to %s for %s @ %s", downstreamName, upstreamMAC, upstreamPort)
	return &assoc, nil
}

// UpdateInfo records a relay report: the downstream MAC currently seen
// behind (upstreamMAC, upstreamPort). A MAC is bound at most once, so
// older rows holding it are cleared first. Reports for unknown ports
// are logged and dropped; re-ingesting the same report is a no-op.
func (s *Store) UpdateInfo(upstreamMAC, upstreamPort, downstreamMAC string) error {
	upstreamMAC = strings.ToLower(upstreamMAC)
	upstreamPort = strings.ToLower(upstreamPort)
	downstreamMAC = strings.ToLower(downstreamMAC)
	log := util.WithComponent("option82")

	var assoc Option82Association
	err := s.db.Where(
		"upstream_switch_mac = ? AND upstream_port_info = ?", upstreamMAC, upstreamPort,
	).First(&assoc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Infof("no option82 info found for %s @ %s", upstreamMAC, upstreamPort)
			return nil
		}
		return fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
	}

	res := s.db.Model(&Option82Association{}).
		Where("downstream_switch_mac = ? AND id <> ?", downstreamMAC, assoc.ID).
		Update("downstream_switch_mac", nil)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", util.ErrStoreFailure, res.Error)
	}
	if res.RowsAffected > 0 {
		log.Infof("cleared %d entries for %s", res.RowsAffected, downstreamMAC)
	}

	if assoc.DownstreamSwitchMAC == nil || *assoc.DownstreamSwitchMAC != downstreamMAC {
		old := Unknown
		if assoc.DownstreamSwitchMAC != nil {
			old = *assoc.DownstreamSwitchMAC
		}
		assoc.DownstreamSwitchMAC = &downstreamMAC
		if err := s.db.Save(&assoc).Error; err != nil {
			return fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
		}
		log.Infof("updated downstream switch mac for %s @ %s (%s -> %s)",
			upstreamMAC, upstreamPort, old, downstreamMAC)
	}
	return nil
}

// AssociationByDownstreamMAC fetches the association currently bound to
// the given downstream switch MAC.
func (s *Store) AssociationByDownstreamMAC(mac string) (*Option82Association, error) {
	var assoc Option82Association
	err := s.db.Where("downstream_switch_mac = ?", strings.ToLower(mac)).First(&assoc).Error
	if err != nil {
		return nil, notFound(err, "option82 association", mac)
	}
	return &assoc, nil
}

// ListAssociations returns every association row.
func (s *Store) ListAssociations() ([]Option82Association, error) {
	var assocs []Option82Association
	if err := s.db.Order("id").Find(&assocs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStoreFailure, err)
	}
	return assocs, nil
}

// DeleteAssociation removes an association row.
func (s *Store) DeleteAssociation(id int64) error {
	res := s.db.Delete(&Option82Association{}, id)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", util.ErrStoreFailure, res.Error)
	}
	if res.RowsAffected == 0 {
		return util.NewNotFoundError("option82 association", fmt.Sprint(id))
	}
	return nil
}
