package easytouch

import (
	"encoding/json"
	"time"

	. "gopkg.in/check.v1"
)

type CodecSuite struct{}

var _ = Suite(&CodecSuite{})

var samplePayload = []byte(`{
  "SN": "ET-12345",
  "CI": 4,
  "PRM": [0, 11, 0, 0],
  "Z_sts": {
    "0": [67,76,76,73,72,45,2,128,128,128,5,1,64,255,0,4],
    "1": [67,76,78,70,72,45,0,128,128,128,2,1,71,255,0,2]
  }
}`)

func (s *CodecSuite) TestDecodeStatus(c *C) {
	status, err := DecodeStatus(samplePayload)
	c.Assert(err, IsNil)
	c.Check(status.Serial, Equals, "ET-12345")
	c.Assert(status.ControllerID, NotNil)
	c.Check(*status.ControllerID, Equals, 4)
	c.Check(status.Power(), Equals, PowerOn)
	c.Check(status.ZoneIDs(), DeepEquals, []int{0, 1})
	c.Check(status.Zones[0].HeatSetPoint, Equals, 73)
	c.Check(status.Zones[1].Mode, Equals, ModeCool)
	c.Check(status.Zones[1].ActiveState, Equals, StateCooling)
}

func (s *CodecSuite) TestDecodeStatusRejectsMalformedPayloads(c *C) {
	testdata := []struct {
		Name     string
		Payload  string
		Expected string
	}{
		{"truncated JSON", `{"Z_sts": {"0": [1,2`, "malformed payload: invalid JSON: .*"},
		{"missing zone section", `{"SN":"x"}`, "malformed payload: no zone status section"},
		{"bad zone key", `{"Z_sts":{"a":[0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0]}}`, "malformed payload: invalid zone key 'a'"},
		{"negative zone key", `{"Z_sts":{"-1":[0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0]}}`, "malformed payload: invalid zone key '-1'"},
		{"short array", `{"Z_sts":{"0":[1,2,3]}}`, "zone 0: malformed payload: zone status has 3 values, expected 16"},
		{"marker overflow", `{"Z_sts":{"0":[0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,999]}}`, "zone 0: malformed payload: slot 15 value 999 is outside of .*"},
	}
	for _, d := range testdata {
		_, err := DecodeStatus([]byte(d.Payload))
		c.Check(err, ErrorMatches, d.Expected, Commentf(d.Name))
	}
}

func (s *CodecSuite) TestDecodeStatusCarriesRawConfigs(c *C) {
	payload := []byte(`{
  "Z_sts": {"0": [67,76,76,73,72,45,2,128,128,128,5,1,64,255,0,4]},
  "Cfg": {"0": {"MAV": 421, "FA": {"cool": [0,1,2,128]}, "SPL": [60,85,50,85]}}
}`)
	status, err := DecodeStatus(payload)
	c.Assert(err, IsNil)
	c.Assert(status.Configs, HasLen, 1)
	c.Check(status.Configs[0].MAV, Equals, uint16(421))
	c.Check(status.Configs[0].FA["cool"], DeepEquals, []int{0, 1, 2, 128})
	c.Check(status.Configs[0].SPL, DeepEquals, []int{60, 85, 50, 85})
}

func (s *CodecSuite) TestEncodeZoneStatusRoundTrips(c *C) {
	original, err := DecodeZoneArray(sampleArray)
	c.Assert(err, IsNil)

	payload := EncodeZoneStatus(2, original, []int{0, 11})
	status, err := DecodeStatus(payload)
	c.Assert(err, IsNil)
	c.Check(status.Zones[2], DeepEquals, original)
	c.Check(status.Power(), Equals, PowerOn)
}

func (s *CodecSuite) TestEncodeCommand(c *C) {
	cmd, err := NewCommand(1, FieldCoolSetPoint, 75)
	c.Assert(err, IsNil)
	data, err := cmd.Encode()
	c.Assert(err, IsNil)
	c.Check(string(data), Equals, `{"Type":"Change","Changes":{"cool_sp":75,"zone":1}}`)
}

func (s *CodecSuite) TestEncodeModeCommandCarriesPower(c *C) {
	cmd, err := NewCommand(0, FieldMode, int(ModeCool))
	c.Assert(err, IsNil)
	data, err := cmd.Encode()
	c.Assert(err, IsNil)
	c.Check(string(data), Equals, `{"Type":"Change","Changes":{"mode":2,"power":1,"zone":0}}`)
}

func (s *CodecSuite) TestEncodeRequests(c *C) {
	now := time.Unix(1700000000, 0)

	data := EncodeStatusRequest("owner@example.com", now)
	c.Check(string(data), Equals, `{"Type":"Get Status","Zone":0,"EM":"owner@example.com","TM":1700000000}`)

	data = EncodeConfigRequest(1, "owner@example.com", now)
	c.Check(string(data), Equals, `{"Type":"Get Config","Zone":1,"EM":"owner@example.com","TM":1700000000}`)

	c.Check(string(EncodeReboot()), Equals, `{"Type":"Change","Changes":{"reset":" OK","zone":0}}`)
	c.Check(string(EncodeAllOff()), Equals, `{"Type":"Change","Changes":{"power":0,"zone":0}}`)
}

func (s *CodecSuite) TestEncodeLocationRequest(c *C) {
	now := time.Unix(1700000000, 0)
	data, err := EncodeLocationRequest(46.51967, 6.63227, now)
	c.Assert(err, IsNil)

	decoded := map[string]interface{}{}
	c.Assert(json.Unmarshal(data, &decoded), IsNil)
	c.Check(decoded["Type"], Equals, "Get Status")
	c.Check(decoded["LAT"], Equals, "46.51967")
	c.Check(decoded["LON"], Equals, "6.63227")

	_, err = EncodeLocationRequest(91.0, 0.0, now)
	c.Check(err, ErrorMatches, ".*latitude is in.*")
	_, err = EncodeLocationRequest(0.0, -181.0, now)
	c.Check(err, ErrorMatches, ".*longitude is in.*")
}
