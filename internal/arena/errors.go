package arena

import "errors"

var (
	ErrInvalidSize       = errors.New("arena size must be positive")
	ErrInvalidRadius     = errors.New("radius must be positive")
	ErrUnknownKind       = errors.New("unknown robot kind")
	ErrRobotNotFound     = errors.New("robot not found")
	ErrObstacleNotFound  = errors.New("obstacle not found")
	ErrNotUserControlled = errors.New("robot is not user controlled")
	ErrUnknownWheels     = errors.New("unknown wheel setting")
	ErrNoWheels          = errors.New("robot is not wheel driven")
)
