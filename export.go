package fuelopt

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteTrajectoryCSV writes one row per segment with Julian date epochs and
// the end-of-segment Cartesian state.
func WriteTrajectoryCSV(traj Trajectory, w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"segment", "start_jd", "end_jd", "delta_v_km_s", "fuel_kg", "rx", "ry", "rz", "vx", "vy", "vz", "system"}
	if err := cw.Write(header); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for i, seg := range traj.Segments {
		system := ""
		if seg.System != nil {
			system = seg.System.Name
		}
		row := []string{
			strconv.Itoa(i + 1),
			f(seg.StartState.JD()),
			f(seg.EndState.JD()),
			f(seg.Δv),
			f(seg.FuelMass),
			f(seg.EndState.R[0]), f(seg.EndState.R[1]), f(seg.EndState.R[2]),
			f(seg.EndState.V[0]), f(seg.EndState.V[1]), f(seg.EndState.V[2]),
			system,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportTrajectoryCSV writes the trajectory to the named file.
func ExportTrajectoryCSV(traj Trajectory, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create %s: %v", filename, err)
	}
	defer file.Close()
	return WriteTrajectoryCSV(traj, file)
}

// missionRecord is the flattened JSON form of an optimization result.
type missionRecord struct {
	Method       string  `json:"method"`
	System       string  `json:"propulsionSystem"`
	TotalΔv      float64 `json:"totalDeltaVKmS"`
	TotalFuel    float64 `json:"totalFuelKg"`
	DurationSec  float64 `json:"durationSec"`
	Maneuvers    int     `json:"maneuvers"`
	InitialMass  float64 `json:"initialMassKg"`
	FinalMass    float64 `json:"finalMassKg"`
	Converged    bool    `json:"converged"`
	Iterations   int     `json:"iterations"`
	Timestamp    string  `json:"timestamp"`
}

// WriteResultJSON writes the flattened result, indented.
func WriteResultJSON(result OptimizationResult, w io.Writer) error {
	record := missionRecord{
		Method:      result.Trajectory.Method,
		System:      result.System.Name,
		TotalΔv:     result.Trajectory.TotalΔv,
		TotalFuel:   result.Trajectory.TotalFuel,
		DurationSec: result.Trajectory.TotalTime.Seconds(),
		Maneuvers:   len(result.Trajectory.Segments),
		InitialMass: result.Summary.InitialMass,
		FinalMass:   result.Summary.FinalMass,
		Converged:   result.Trajectory.Converged,
		Iterations:  result.Trajectory.Iterations,
		Timestamp:   result.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

// ExportResultJSON writes the result to the named file.
func ExportResultJSON(result OptimizationResult, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create %s: %v", filename, err)
	}
	defer file.Close()
	return WriteResultJSON(result, file)
}
