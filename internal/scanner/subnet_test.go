package scanner

import "testing"

func TestParseSubnetThreeOctets(t *testing.T) {
	s, ok := ParseSubnet("192.168.1")
	if !ok {
		t.Fatal("expected ok")
	}
	if s != (Subnet{192, 168, 1}) {
		t.Errorf("got %+v", s)
	}
}

func TestParseSubnetFourOctets(t *testing.T) {
	s, ok := ParseSubnet("10.0.0.255")
	if !ok {
		t.Fatal("expected ok")
	}
	if s != (Subnet{10, 0, 0}) {
		t.Errorf("got %+v", s)
	}
}

func TestParseSubnetWithCIDR(t *testing.T) {
	s, ok := ParseSubnet("192.168.1.0/24")
	if !ok {
		t.Fatal("expected ok")
	}
	if s != (Subnet{192, 168, 1}) {
		t.Errorf("got %+v", s)
	}
}

func TestParseSubnetInvalid(t *testing.T) {
	for _, bad := range []string{"192.168", "192", "", "300.1.1"} {
		if _, ok := ParseSubnet(bad); ok {
			t.Errorf("expected %q to fail parsing", bad)
		}
	}
}

func TestParseSubnetsDropsInvalidTokens(t *testing.T) {
	subnets := ParseSubnets("192.168.1, bogus; 10.0.0.0/16 172.16.5")
	if len(subnets) != 3 {
		t.Fatalf("got %d subnets, want 3: %+v", len(subnets), subnets)
	}
}

func TestSubnetAddrAndBase(t *testing.T) {
	s := Subnet{192, 168, 1}
	if s.Base() != "192.168.1." {
		t.Errorf("Base() = %q", s.Base())
	}
	if s.Addr(42) != "192.168.1.42" {
		t.Errorf("Addr(42) = %q", s.Addr(42))
	}
}
