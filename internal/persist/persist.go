// Package persist reads and writes the line-oriented arena dump.
//
// The format records dimensions, robot positions and obstacles only. Robot
// kinds and identifiers are not stored, so every robot comes back as a
// basic robot with a fresh identifier.
package persist

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"robot-arena/internal/arena"
	"robot-arena/internal/logging"
)

const (
	dimensionsFormat = "Arena Dimensions: %f x %f\n"
	robotFormat      = "Robot ID: %d at (%.1f, %.1f), Radius: %.1f, Speed: %.1f, Angle: %.1f\n"
	obstacleFormat   = "Obstacle at (%.1f, %.1f), Radius: %.1f\n"

	// MaxLineBytes bounds a single dump line. Longer lines are skipped.
	MaxLineBytes = 4096

	logPrefixBytes = 80
)

var (
	dimensionsLine = regexp.MustCompile(`^Arena Dimensions:\s*(\S+)\s*x\s*(\S+)$`)
	robotLine      = regexp.MustCompile(`^Robot ID:\s*(\S+)\s+at\s*\(\s*([^,]*?)\s*,\s*([^)]*?)\s*\)\s*,\s*Radius:\s*(\S*)\s*,\s*Speed:\s*(\S*)\s*,\s*Angle:\s*(\S*)$`)
	obstacleLine   = regexp.MustCompile(`^Obstacle at\s*\(\s*([^,]*?)\s*,\s*([^)]*?)\s*\)\s*,\s*Radius:\s*(\S*)$`)
)

// Result summarises a load.
type Result struct {
	Width, Height float64
	Robots        int
	Obstacles     int
	Skipped       int
}

// Save writes snap in the dump format.
func Save(w io.Writer, snap arena.Snapshot) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, dimensionsFormat, snap.Width, snap.Height)
	for _, r := range snap.Robots {
		fmt.Fprintf(bw, robotFormat, r.ID, r.X, r.Y, r.Radius, r.Speed, r.Angle)
	}
	for _, o := range snap.Obstacles {
		fmt.Fprintf(bw, obstacleFormat, o.X, o.Y, o.Radius)
	}

	return errors.Wrap(bw.Flush(), "write arena dump")
}

// SaveFile writes snap to path, replacing any existing file.
func SaveFile(path string, snap arena.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := Save(f, snap); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// entry is one parsed line waiting to be applied
type entry struct {
	robot    arena.Robot
	obstacle *arena.Obstacle
}

// Load replaces the contents of a with the dump read from r.
//
// Lines that cannot be parsed are logged and skipped. A read error aborts
// the load before the arena is touched.
func Load(r io.Reader, a *arena.Arena, log *zap.Logger) (Result, error) {
	log = logging.OrNop(log)

	var (
		res      Result
		entries  []entry
		haveDims bool
		lineNo   int
	)
	res.Width, res.Height = a.Width(), a.Height()

	skip := func(line, reason string) {
		res.Skipped++
		log.Warn("skipping malformed line",
			zap.Int("line", lineNo),
			zap.String("reason", reason),
			zap.String("text", line))
	}

	br := bufio.NewReader(r)
	for {
		line, tooLong, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, errors.Wrap(err, "read arena dump")
		}
		lineNo++
		if tooLong {
			skip(line, fmt.Sprintf("line exceeds %d bytes", MaxLineBytes))
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case dimensionsLine.MatchString(line):
			m := dimensionsLine.FindStringSubmatch(line)
			vals, err := parseFloats(m[1:]...)
			if err != nil {
				skip(line, err.Error())
				continue
			}
			if vals[0] <= 0 || vals[1] <= 0 {
				skip(line, "dimensions must be positive")
				continue
			}
			res.Width, res.Height = vals[0], vals[1]
			haveDims = true

		case robotLine.MatchString(line):
			m := robotLine.FindStringSubmatch(line)
			// the stored identifier is informational only
			vals, err := parseFloats(m[2:]...)
			if err != nil {
				skip(line, err.Error())
				continue
			}
			x, y, radius, speed, angle := vals[0], vals[1], vals[2], vals[3], vals[4]
			robot, err := arena.NewRobot(arena.KindBasic, x, y, radius, angle, speed)
			if err != nil {
				skip(line, err.Error())
				continue
			}
			entries = append(entries, entry{robot: robot})

		case obstacleLine.MatchString(line):
			m := obstacleLine.FindStringSubmatch(line)
			vals, err := parseFloats(m[1:]...)
			if err != nil {
				skip(line, err.Error())
				continue
			}
			if vals[2] <= 0 {
				skip(line, "radius must be positive")
				continue
			}
			entries = append(entries, entry{obstacle: &arena.Obstacle{X: vals[0], Y: vals[1], Radius: vals[2]}})

		default:
			skip(line, "unrecognised line")
		}
	}

	a.Clear()
	if haveDims {
		if err := a.SetSize(res.Width, res.Height); err != nil {
			return res, errors.Wrap(err, "apply dimensions")
		}
	}
	for _, e := range entries {
		switch {
		case e.robot != nil:
			a.AddRobot(e.robot)
			res.Robots++
		case e.obstacle != nil:
			if err := a.AddObstacle(*e.obstacle); err == nil {
				res.Obstacles++
			}
		}
	}

	log.Info("arena loaded",
		zap.Float64("width", res.Width),
		zap.Float64("height", res.Height),
		zap.Int("robots", res.Robots),
		zap.Int("obstacles", res.Obstacles),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// LoadFile opens path and loads it into a.
func LoadFile(path string, a *arena.Arena, log *zap.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return Load(f, a, log)
}

// readLine returns the next line without its terminator. A line longer than
// MaxLineBytes is consumed in full and reported as tooLong, with only its
// first bytes returned for logging. io.EOF is returned once no data is left.
func readLine(br *bufio.Reader) (line string, tooLong bool, err error) {
	var sb strings.Builder
	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && (sb.Len() > 0 || tooLong) {
				return sb.String(), tooLong, nil
			}
			return sb.String(), tooLong, err
		}
		if !tooLong {
			if sb.Len()+len(frag) > MaxLineBytes {
				tooLong = true
				head := sb.String() + string(frag[:min(len(frag), logPrefixBytes)])
				sb.Reset()
				sb.WriteString(head[:min(len(head), logPrefixBytes)])
			} else {
				sb.Write(frag)
			}
		}
		if !isPrefix {
			return sb.String(), tooLong, nil
		}
	}
}

func parseFloats(fields ...string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Errorf("bad number %q", s)
		}
		out[i] = v
	}
	return out, nil
}
