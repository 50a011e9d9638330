package domain

import (
	"time"
)

// SysConfig runtime settings, addressed by (type, name)
type SysConfig struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Sort      int       `json:"sort"`
	Type      string    `gorm:"index" json:"type"`
	Name      string    `gorm:"index" json:"name"`
	Value     string    `json:"value"`
	Remark    string    `json:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysConfig) TableName() string {
	return "sys_config"
}

// SysOprLog admin audit trail
type SysOprLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OprName   string    `json:"opr_name"`
	OprIp     string    `json:"opr_ip"`
	OptAction string    `json:"opt_action"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
