package netutil

import "testing"

func TestNormalizeMAC(t *testing.T) {
	got := NormalizeMAC("aa-bb-cc-dd-ee-ff")
	if got != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("got %q", got)
	}
	if !ValidMAC(got) {
		t.Fatalf("expected %q to be valid", got)
	}
}

func TestValidMACRejectsBadForm(t *testing.T) {
	for _, bad := range []string{"", "aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE", "GG:BB:CC:DD:EE:FF"} {
		if ValidMAC(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestValidInterfaceName(t *testing.T) {
	if !ValidInterfaceName("eth0") || !ValidInterfaceName("en0.100") {
		t.Fatal("expected valid interface names to pass")
	}
	if ValidInterfaceName("") || ValidInterfaceName("eth0/vlan") {
		t.Fatal("expected invalid interface names to fail")
	}
}
