// Package datasettest provides CSV fixtures shared by tests across packages.
package datasettest

import (
	"os"
	"path/filepath"
	"testing"
)

const Header = "VIN (1-10),County,City,State,Postal Code,Model Year,Make,Model,Electric Vehicle Type," +
	"Clean Alternative Fuel Vehicle (CAFV) Eligibility,Electric Range,Base MSRP,Legislative District,Electric Utility\n"

// Sample has ten rows: six Tesla (four Model 3), two Nissan, one Chevrolet and
// one row with a blank state and a malformed model year.
const Sample = Header +
	"5YJ3E1EB4L,King,Seattle,WA,98101,2020,TESLA,Model 3,Battery Electric Vehicle (BEV),Clean Alternative Fuel Vehicle Eligible,322,0,43,CITY OF SEATTLE - (WA)\n" +
	"5YJ3E1EA7K,King,Bellevue,WA,98004,2019,TESLA,Model 3,Battery Electric Vehicle (BEV),Clean Alternative Fuel Vehicle Eligible,220,39990,48,PUGET SOUND ENERGY INC\n" +
	"5YJ3E1EB1J,Alameda,Oakland,CA,94601,2018,TESLA,Model 3,Battery Electric Vehicle (BEV),Clean Alternative Fuel Vehicle Eligible,215,,,PACIFIC GAS & ELECTRIC\n" +
	"5YJYGDEE0M,Snohomish,Everett,WA,98201,2021,TESLA,Model Y,Battery Electric Vehicle (BEV),Eligibility unknown as battery range has not been researched,,,38,PUGET SOUND ENERGY INC\n" +
	"5YJ3E1EC9L,Clark,Vancouver,WA,98660,2020,Tesla,model 3,Battery Electric Vehicle (BEV),Clean Alternative Fuel Vehicle Eligible,308,,17,BONNEVILLE POWER ADMINISTRATION\n" +
	"5YJSA1E26H,King,Seattle,WA,98101,2017,TESLA,Model S,Battery Electric Vehicle (BEV),Clean Alternative Fuel Vehicle Eligible,210,69900,43,CITY OF SEATTLE - (WA)\n" +
	"1N4AZ0CP5D,Kitsap,Bremerton,WA,98312,2013,NISSAN,LEAF,Battery Electric Vehicle (BEV),Clean Alternative Fuel Vehicle Eligible,75,,26,PUGET SOUND ENERGY INC\n" +
	"1N4BZ1CP1K,Alameda,Oakland,CA,94601,2019,NISSAN,LEAF,Battery Electric Vehicle (BEV),Clean Alternative Fuel Vehicle Eligible,150,,,PACIFIC GAS & ELECTRIC\n" +
	"1G1FX6S08H,Thurston,Olympia,WA,98501,2017,CHEVROLET,BOLT EV,Battery Electric Vehicle (BEV),Clean Alternative Fuel Vehicle Eligible,238,,22,PUGET SOUND ENERGY INC\n" +
	"1FMCU0EZXN,,,,,N/A,FORD,ESCAPE,Plug-in Hybrid Electric Vehicle (PHEV),Not eligible due to low battery range,14,,,\n"

// SampleRows is the number of data rows in Sample.
const SampleRows = 10

// WriteFile writes content under dir and returns the file path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// WriteSample writes Sample as name in a fresh temp dir and returns the dir.
func WriteSample(t testing.TB, name string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, dir, name, Sample)
	return dir
}
