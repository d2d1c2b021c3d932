package config

// Embedded zone database so TIMEZONE works in minimal job containers.
import _ "time/tzdata"
