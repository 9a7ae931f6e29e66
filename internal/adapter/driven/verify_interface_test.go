package driven

import (
	port "github.com/alorle/iptv-catalog/internal/port/driven"
)

// Compile-time check that PreferenceBoltDBRepository implements PreferenceRepository interface
var _ port.PreferenceRepository = (*PreferenceBoltDBRepository)(nil)
